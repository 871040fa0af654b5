package service

import (
	"context"
	"io"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/dto"
)

// AuthService defines methods for registration, email confirmation and sessions
type AuthService interface {
	// Register creates an unconfirmed user and schedules a confirmation email linking to baseURL
	Register(ctx context.Context, req *dto.RegisterRequest, baseURL string) (*domain.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error)
	// ConfirmEmail returns the message to show to the user
	ConfirmEmail(ctx context.Context, token string) (string, error)
	// RequestEmail returns the message to show to the user. Unknown emails are not revealed.
	RequestEmail(ctx context.Context, req *dto.RequestEmailRequest, baseURL string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	// Authenticate resolves the user owning an access token
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	// Drain waits for confirmation emails still being sent
	Drain(ctx context.Context) error
}

// ContactService defines contact operations scoped to the acting user
type ContactService interface {
	List(ctx context.Context, owner *domain.User, filter domain.ContactFilter) ([]*domain.Contact, error)
	Get(ctx context.Context, owner *domain.User, contactID int64) (*domain.Contact, error)
	Create(ctx context.Context, owner *domain.User, fields domain.ContactFields) (*domain.Contact, error)
	Update(ctx context.Context, owner *domain.User, contactID int64, fields domain.ContactFields) (*domain.Contact, error)
	Delete(ctx context.Context, owner *domain.User, contactID int64) (*domain.Contact, error)
	UpcomingBirthdays(ctx context.Context, owner *domain.User) ([]*domain.Contact, error)
}

// UserService defines profile operations of the acting user
type UserService interface {
	UpdateAvatar(ctx context.Context, user *domain.User, file io.Reader) (*domain.User, error)
}

// EmailSender delivers confirmation emails
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, to, username, host, token string) error
}

// AvatarUploader stores an avatar image and returns its public URL
type AvatarUploader interface {
	Upload(ctx context.Context, file io.Reader, username string) (string, error)
}
