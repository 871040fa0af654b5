package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/pkg/database"
)

var (
	userRowColumns    = []string{"id", "username", "email", "hashed_password", "created_at", "avatar", "confirmed", "refresh_token", "role"}
	contactRowColumns = []string{"id", "first_name", "last_name", "email", "phone", "birth_date", "additional_data", "user_id"}
)

func newMock(t *testing.T) (*database.Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return &database.Postgres{DB: db}, mock
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	created := time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@example.com", "hash", sqlmock.AnyArg(), "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "confirmed"}).AddRow(7, created, false))

	user := &domain.User{Username: "alice", Email: "alice@example.com", HashedPassword: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, created, user.CreatedAt)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.False(t, user.Confirmed)
}

func TestUserRepositoryCreateDuplicates(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_email_key", ErrDuplicateEmail},
		{"users_username_key", ErrDuplicateUsername},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepository(db)

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: tt.constraint})

			err := repo.Create(context.Background(), &domain.User{Username: "alice", Email: "alice@example.com"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserRepositoryGetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(7, "alice", "alice@example.com", "hash", time.Now(), "https://img/a.png", true, "rt", "admin"))

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(7), user.ID)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, "https://img/a.png", *user.Avatar)
	assert.True(t, user.Confirmed)
	assert.True(t, user.HasRefreshToken("rt"))
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryGetByIDNullableColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(3, "bob", "bob@example.com", "hash", time.Now(), nil, false, nil, "user"))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, user.Avatar)
	assert.Nil(t, user.RefreshToken)
}

func TestUserRepositoryConfirmEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET confirmed = TRUE")).
		WithArgs("alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET confirmed = TRUE")).
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ConfirmEmail(context.Background(), "alice@example.com"))
	assert.ErrorIs(t, repo.ConfirmEmail(context.Background(), "ghost@example.com"), ErrNotFound)
}

func TestUserRepositoryUpdateAvatar(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET avatar = $2 WHERE email = $1")).
		WithArgs("alice@example.com", "https://img/new.png").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(7, "alice", "alice@example.com", "hash", time.Now(), "https://img/new.png", true, nil, "user"))

	user, err := repo.UpdateAvatar(context.Background(), "alice@example.com", "https://img/new.png")
	require.NoError(t, err)
	assert.Equal(t, "https://img/new.png", *user.Avatar)
}

func TestUserRepositorySetRefreshToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	token := "refresh"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = $2")).
		WithArgs(int64(7), "refresh").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = $2")).
		WithArgs(int64(7), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetRefreshToken(context.Background(), 7, &token))
	require.NoError(t, repo.SetRefreshToken(context.Background(), 7, nil))
}

func TestContactRepositoryListWithQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2) ORDER BY id OFFSET $3 LIMIT $4")).
		WithArgs(int64(1), `%50\%\_off%`, 0, 10).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(4, "Ann", "Lee", "ann@example.com", "+380501112233", time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), nil, 1))

	contacts, err := repo.List(context.Background(), 1, domain.ContactFilter{Skip: 0, Limit: 10, Query: "50%_off"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ann", contacts[0].FirstName)
	assert.Equal(t, "1990-05-17", contacts[0].BirthDate.String())
	assert.Nil(t, contacts[0].AdditionalData)
}

func TestContactRepositoryListWithoutQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY id OFFSET $2 LIMIT $3")).
		WithArgs(int64(1), 20, 5).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	contacts, err := repo.List(context.Background(), 1, domain.ContactFilter{Skip: 20, Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestContactRepositoryGetByIDScopedToOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	_, err := repo.GetByID(context.Background(), 2, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactRepositoryCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)
	note := "met at conference"

	fields := domain.ContactFields{
		FirstName:      "Ann",
		LastName:       "Lee",
		Email:          "ann@example.com",
		Phone:          "+380501112233",
		BirthDate:      domain.NewDate(1990, time.May, 17),
		AdditionalData: &note,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contacts")).
		WithArgs("Ann", "Lee", "ann@example.com", "+380501112233", "1990-05-17", "met at conference", int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(9, "Ann", "Lee", "ann@example.com", "+380501112233", "1990-05-17", note, 1))

	contact, err := repo.Create(context.Background(), 1, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(9), contact.ID)
	assert.Equal(t, int64(1), contact.UserID)
	require.NotNil(t, contact.AdditionalData)
	assert.Equal(t, note, *contact.AdditionalData)
}

func TestContactRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contacts")).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "contacts_email_key"})

	_, err := repo.Create(context.Background(), 1, domain.ContactFields{Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateContactEmail)
}

func TestContactRepositoryUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	fields := domain.ContactFields{
		FirstName: "Ann",
		LastName:  "Smith",
		Email:     "ann@example.com",
		Phone:     "+380501112233",
		BirthDate: domain.NewDate(1990, time.May, 17),
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contacts")).
		WithArgs(int64(9), int64(1), "Ann", "Smith", "ann@example.com", "+380501112233", "1990-05-17", nil).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(9, "Ann", "Smith", "ann@example.com", "+380501112233", "1990-05-17", nil, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contacts")).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	contact, err := repo.Update(context.Background(), 1, 9, fields)
	require.NoError(t, err)
	assert.Equal(t, "Smith", contact.LastName)

	_, err = repo.Update(context.Background(), 1, 10, fields)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactRepositoryDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM contacts WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(9), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(9, "Ann", "Lee", "ann@example.com", "+380501112233", "1990-05-17", nil, 1))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM contacts")).
		WithArgs(int64(9), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	contact, err := repo.Delete(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), contact.ID)

	_, err = repo.Delete(context.Background(), 1, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactRepositoryUpcomingBirthdays(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	from := domain.NewDate(2026, time.December, 28)
	to := from.AddDays(7)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.next_birthday")).
		WithArgs(int64(1), "2026-12-28", "2027-01-04").
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(2, "Dec", "Born", "dec@example.com", "1", "1991-12-30", nil, 1).
			AddRow(3, "Jan", "Born", "jan@example.com", "2", "1985-01-02", nil, 1))

	contacts, err := repo.UpcomingBirthdays(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Dec", contacts[0].FirstName)
	assert.Equal(t, "Jan", contacts[1].FirstName)
}

func TestContactRepositoryQueryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts")).WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background(), 1, domain.ContactFilter{Limit: 10})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
