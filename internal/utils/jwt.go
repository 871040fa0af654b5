package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/contacts-service/internal/domain"
)

const refreshTokenType = "refresh"

// ErrInvalidToken is returned for any token that fails signature, expiry or claim checks
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set shared by access, refresh and email confirmation tokens
type Claims struct {
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig holds secrets and lifetimes for TokenManager
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Algorithm     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EmailTTL      time.Duration
}

// UserLookup resolves a token subject to a user. A nil user with a nil error means no such user.
type UserLookup func(ctx context.Context, username string) (*domain.User, error)

// TokenManager issues and verifies signed tokens.
// Access and email tokens are signed with the access secret, refresh tokens with the refresh secret.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
	accessTTL     time.Duration
	refreshTTL    time.Duration
	emailTTL      time.Duration
	now           func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("token secrets must not be empty")
	}

	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		method:        method,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		emailTTL:      cfg.EmailTTL,
		now:           time.Now,
	}, nil
}

// IssueAccess creates an access token for subject. A zero ttl uses the configured lifetime.
func (m *TokenManager) IssueAccess(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.accessTTL
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(m.now().Add(ttl)),
		},
	}

	return m.sign(claims, m.accessSecret)
}

// IssueRefresh creates a refresh token for subject. A zero ttl uses the configured lifetime.
func (m *TokenManager) IssueRefresh(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.refreshTTL
	}

	claims := Claims{
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(m.now().Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	return m.sign(claims, m.refreshSecret)
}

// IssueEmailToken creates an email confirmation token whose subject is the email address
func (m *TokenManager) IssueEmailToken(email string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.emailTTL)),
		},
	}

	return m.sign(claims, m.accessSecret)
}

// VerifyAccess validates an access token and returns its subject
func (m *TokenManager) VerifyAccess(token string) (string, error) {
	claims, err := m.parse(token, m.accessSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefresh validates a refresh token and resolves the user it was issued to.
// It returns a nil user for every token problem, including a token that is no longer
// the one stored for the user. The error is reserved for lookup failures.
func (m *TokenManager) VerifyRefresh(ctx context.Context, token string, lookup UserLookup) (*domain.User, error) {
	claims, err := m.parse(token, m.refreshSecret)
	if err != nil {
		return nil, nil
	}
	if claims.TokenType != refreshTokenType {
		return nil, nil
	}

	user, err := lookup(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token owner: %w", err)
	}
	if user == nil || !user.HasRefreshToken(token) {
		return nil, nil
	}

	return user, nil
}

// ExtractEmail validates an email confirmation token and returns the address it was issued for
func (m *TokenManager) ExtractEmail(token string) (string, error) {
	claims, err := m.parse(token, m.accessSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// AccessTTL returns the default access token lifetime
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) sign(claims Claims, secret []byte) (string, error) {
	tokenString, err := jwt.NewWithClaims(m.method, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (m *TokenManager) parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
