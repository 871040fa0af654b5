// Package memory provides in-memory repositories with the same contract as the
// PostgreSQL ones. They back service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/repository"
)

// UserRepository is an in-memory repository.UserRepository
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*domain.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates an empty user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
		if u.Username == user.Username {
			return fmt.Errorf("user with username %s already exists: %w", user.Username, repository.ErrDuplicateUsername)
		}
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	user.Confirmed = false
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) ConfirmEmail(_ context.Context, email string) error {
	return r.update(func(u *domain.User) bool { return u.Email == email }, func(u *domain.User) {
		u.Confirmed = true
	})
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, email, url string) (*domain.User, error) {
	err := r.update(func(u *domain.User) bool { return u.Email == email }, func(u *domain.User) {
		u.Avatar = &url
	})
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, email)
}

func (r *UserRepository) SetRefreshToken(_ context.Context, userID int64, token *string) error {
	// Unknown ids are ignored, like the SQL UPDATE
	_ = r.update(func(u *domain.User) bool { return u.ID == userID }, func(u *domain.User) {
		u.RefreshToken = nil
		if token != nil {
			t := *token
			u.RefreshToken = &t
		}
	})
	return nil
}

// SetConfirmed flips the confirmed flag directly, for tests that skip the email flow
func (r *UserRepository) SetConfirmed(username string) {
	_ = r.update(func(u *domain.User) bool { return u.Username == username }, func(u *domain.User) {
		u.Confirmed = true
	})
}

func (r *UserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) update(match func(*domain.User) bool, apply func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			apply(u)
			return nil
		}
	}
	return repository.ErrNotFound
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.Avatar != nil {
		avatar := *u.Avatar
		c.Avatar = &avatar
	}
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}

// ContactRepository is an in-memory repository.ContactRepository
type ContactRepository struct {
	mu       sync.RWMutex
	nextID   int64
	contacts map[int64]*domain.Contact
}

var _ repository.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository creates an empty contact repository
func NewContactRepository() *ContactRepository {
	return &ContactRepository{contacts: make(map[int64]*domain.Contact)}
}

func (r *ContactRepository) List(_ context.Context, userID int64, filter domain.ContactFilter) ([]*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	matched := r.owned(userID, func(c *domain.Contact) bool {
		if query == "" {
			return true
		}
		return strings.Contains(strings.ToLower(c.FirstName), query) ||
			strings.Contains(strings.ToLower(c.LastName), query) ||
			strings.Contains(strings.ToLower(c.Email), query)
	})

	if filter.Skip >= len(matched) {
		return []*domain.Contact{}, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *ContactRepository) GetByID(_ context.Context, userID, contactID int64) (*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contacts[contactID]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return copyContact(c), nil
}

func (r *ContactRepository) Create(_ context.Context, userID int64, fields domain.ContactFields) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(fields.Email, 0) {
		return nil, repository.ErrDuplicateContactEmail
	}

	r.nextID++
	c := &domain.Contact{ID: r.nextID, UserID: userID}
	applyFields(c, fields)
	r.contacts[c.ID] = c

	return copyContact(c), nil
}

func (r *ContactRepository) Update(_ context.Context, userID, contactID int64, fields domain.ContactFields) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if r.emailTaken(fields.Email, contactID) {
		return nil, repository.ErrDuplicateContactEmail
	}

	applyFields(c, fields)
	return copyContact(c), nil
}

func (r *ContactRepository) Delete(_ context.Context, userID, contactID int64) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok || c.UserID != userID {
		return nil, repository.ErrNotFound
	}
	delete(r.contacts, contactID)
	return c, nil
}

// UpcomingBirthdays matches on the next anniversary of the birth date, like the SQL query
func (r *ContactRepository) UpcomingBirthdays(_ context.Context, userID int64, from, to domain.Date) ([]*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	next := make(map[int64]domain.Date)
	matched := r.owned(userID, func(c *domain.Contact) bool {
		anniversary := NextAnniversary(c.BirthDate, from)
		next[c.ID] = anniversary
		return !anniversary.Before(from.Time) && !anniversary.After(to.Time)
	})

	sort.SliceStable(matched, func(i, j int) bool {
		return next[matched[i].ID].Before(next[matched[j].ID].Time)
	})
	return matched, nil
}

// NextAnniversary returns the first anniversary of birth on or after from.
// A February 29 birthday falls on February 28 in common years.
func NextAnniversary(birth, from domain.Date) domain.Date {
	anniversary := anniversaryIn(birth, from.Year())
	if anniversary.Before(from.Time) {
		anniversary = anniversaryIn(birth, from.Year()+1)
	}
	return anniversary
}

func anniversaryIn(birth domain.Date, year int) domain.Date {
	d := domain.NewDate(year, birth.Month(), birth.Day())
	if d.Month() != birth.Month() {
		return domain.NewDate(year, birth.Month()+1, 0)
	}
	return d
}

// owned returns copies of the user's contacts matching keep, ordered by id
func (r *ContactRepository) owned(userID int64, keep func(*domain.Contact) bool) []*domain.Contact {
	result := make([]*domain.Contact, 0)
	for _, c := range r.contacts {
		if c.UserID == userID && keep(c) {
			result = append(result, copyContact(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *ContactRepository) emailTaken(email string, exceptID int64) bool {
	for id, c := range r.contacts {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}

func applyFields(c *domain.Contact, fields domain.ContactFields) {
	c.FirstName = fields.FirstName
	c.LastName = fields.LastName
	c.Email = fields.Email
	c.Phone = fields.Phone
	c.BirthDate = fields.BirthDate
	c.AdditionalData = nil
	if fields.AdditionalData != nil {
		data := *fields.AdditionalData
		c.AdditionalData = &data
	}
}

func copyContact(c *domain.Contact) *domain.Contact {
	cp := *c
	if c.AdditionalData != nil {
		data := *c.AdditionalData
		cp.AdditionalData = &data
	}
	return &cp
}
