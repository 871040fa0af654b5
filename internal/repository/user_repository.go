package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/pkg/database"
)

const userColumns = `id, username, email, hashed_password, created_at, avatar, confirmed, refresh_token, role`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new unconfirmed user and fills in the generated fields
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, hashed_password, avatar, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, confirmed
	`

	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	err := r.db.DB.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.HashedPassword,
		user.Avatar,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.Confirmed)

	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			switch constraint {
			case usersUsernameConstraint:
				return fmt.Errorf("user with username %s already exists: %w", user.Username, ErrDuplicateUsername)
			default:
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with username %s not found: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ConfirmEmail marks the user owning email as confirmed
func (r *userRepository) ConfirmEmail(ctx context.Context, email string) error {
	query := `UPDATE users SET confirmed = TRUE WHERE email = $1`

	result, err := r.db.DB.ExecContext(ctx, query, email)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
	}

	return nil
}

// UpdateAvatar sets the avatar URL of the user owning email and returns the updated user
func (r *userRepository) UpdateAvatar(ctx context.Context, email, url string) (*domain.User, error) {
	query := `UPDATE users SET avatar = $2 WHERE email = $1 RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email, url))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	return user, nil
}

// SetRefreshToken replaces the stored refresh token. Unknown user ids are ignored.
func (r *userRepository) SetRefreshToken(ctx context.Context, userID int64, token *string) error {
	query := `UPDATE users SET refresh_token = $2 WHERE id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var avatar, refreshToken sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&avatar,
		&user.Confirmed,
		&refreshToken,
		&user.Role,
	)
	if err != nil {
		return nil, err
	}

	if avatar.Valid {
		user.Avatar = &avatar.String
	}
	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}

	return user, nil
}
