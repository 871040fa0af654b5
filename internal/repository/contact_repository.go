package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/pkg/database"
)

const contactColumns = `id, first_name, last_name, email, phone, birth_date, additional_data, user_id`

// upcomingBirthdaysQuery matches contacts by the next anniversary of their birth date,
// so a window spanning New Year still finds early January birthdays.
const upcomingBirthdaysQuery = `
	SELECT ` + contactColumns + `
	FROM (
		SELECT c.*,
			CASE WHEN c.anniversary < $2::date
				THEN (c.anniversary + INTERVAL '1 year')::date
				ELSE c.anniversary
			END AS next_birthday
		FROM (
			SELECT contacts.*,
				(birth_date + make_interval(years => date_part('year', age($2::date, birth_date))::int))::date AS anniversary
			FROM contacts
			WHERE user_id = $1
		) c
	) b
	WHERE b.next_birthday BETWEEN $2::date AND $3::date
	ORDER BY b.next_birthday, b.id
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contactRepository implements ContactRepository interface
type contactRepository struct {
	db *database.Postgres
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *database.Postgres) ContactRepository {
	return &contactRepository{db: db}
}

// List returns a page of the owner's contacts, optionally filtered by a case-insensitive
// substring of first name, last name or email
func (r *contactRepository) List(ctx context.Context, userID int64, filter domain.ContactFilter) ([]*domain.Contact, error) {
	args := []any{userID}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`

	if filter.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
		query += ` AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)`
	}

	args = append(args, filter.Skip, filter.Limit)
	query += fmt.Sprintf(` ORDER BY id OFFSET $%d LIMIT $%d`, len(args)-1, len(args))

	return r.query(ctx, "list contacts", query, args...)
}

// GetByID retrieves one of the owner's contacts
func (r *contactRepository) GetByID(ctx context.Context, userID, contactID int64) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`

	contact, err := scanContact(r.db.DB.QueryRowContext(ctx, query, contactID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %d not found: %w", contactID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact by id: %w", err)
	}

	return contact, nil
}

// Create inserts a contact owned by userID
func (r *contactRepository) Create(ctx context.Context, userID int64, fields domain.ContactFields) (*domain.Contact, error) {
	query := `
		INSERT INTO contacts (first_name, last_name, email, phone, birth_date, additional_data, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + contactColumns

	contact, err := scanContact(r.db.DB.QueryRowContext(ctx, query,
		fields.FirstName,
		fields.LastName,
		fields.Email,
		fields.Phone,
		fields.BirthDate,
		fields.AdditionalData,
		userID,
	))
	if err != nil {
		return nil, contactWriteError("create", fields.Email, err)
	}

	return contact, nil
}

// Update replaces every mutable field of one of the owner's contacts
func (r *contactRepository) Update(ctx context.Context, userID, contactID int64, fields domain.ContactFields) (*domain.Contact, error) {
	query := `
		UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone = $6, birth_date = $7, additional_data = $8
		WHERE id = $1 AND user_id = $2
		RETURNING ` + contactColumns

	contact, err := scanContact(r.db.DB.QueryRowContext(ctx, query,
		contactID,
		userID,
		fields.FirstName,
		fields.LastName,
		fields.Email,
		fields.Phone,
		fields.BirthDate,
		fields.AdditionalData,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %d not found: %w", contactID, ErrNotFound)
		}
		return nil, contactWriteError("update", fields.Email, err)
	}

	return contact, nil
}

// Delete removes one of the owner's contacts and returns it
func (r *contactRepository) Delete(ctx context.Context, userID, contactID int64) (*domain.Contact, error) {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING ` + contactColumns

	contact, err := scanContact(r.db.DB.QueryRowContext(ctx, query, contactID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %d not found: %w", contactID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete contact: %w", err)
	}

	return contact, nil
}

// UpcomingBirthdays returns the owner's contacts whose next birthday falls in [from, to]
func (r *contactRepository) UpcomingBirthdays(ctx context.Context, userID int64, from, to domain.Date) ([]*domain.Contact, error) {
	return r.query(ctx, "get upcoming birthdays", upcomingBirthdaysQuery, userID, from, to)
}

func (r *contactRepository) query(ctx context.Context, op, query string, args ...any) ([]*domain.Contact, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	contacts := make([]*domain.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

func contactWriteError(op, email string, err error) error {
	if constraint, ok := uniqueConstraint(err); ok && constraint == contactsEmailConstraint {
		return fmt.Errorf("contact with email %s already exists: %w", email, ErrDuplicateContactEmail)
	}
	return fmt.Errorf("failed to %s contact: %w", op, err)
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	contact := &domain.Contact{}
	var additionalData sql.NullString

	err := row.Scan(
		&contact.ID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.Phone,
		&contact.BirthDate,
		&additionalData,
		&contact.UserID,
	)
	if err != nil {
		return nil, err
	}

	if additionalData.Valid {
		contact.AdditionalData = &additionalData.String
	}

	return contact, nil
}
