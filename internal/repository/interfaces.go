package repository

import (
	"context"

	"github.com/prperemyshlev/contacts-service/internal/domain"
)

// UserRepository defines methods for user operations.
// Lookups return ErrNotFound when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*domain.User, error)
	SetRefreshToken(ctx context.Context, userID int64, token *string) error
}

// ContactRepository defines owner scoped contact operations.
// A contact owned by another user is reported as ErrNotFound.
type ContactRepository interface {
	List(ctx context.Context, userID int64, filter domain.ContactFilter) ([]*domain.Contact, error)
	GetByID(ctx context.Context, userID, contactID int64) (*domain.Contact, error)
	Create(ctx context.Context, userID int64, fields domain.ContactFields) (*domain.Contact, error)
	Update(ctx context.Context, userID, contactID int64, fields domain.ContactFields) (*domain.Contact, error)
	Delete(ctx context.Context, userID, contactID int64) (*domain.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64, from, to domain.Date) ([]*domain.Contact, error)
}
