package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/repository"
	"github.com/prperemyshlev/contacts-service/internal/utils"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	tokenTypeBearer  = "bearer"
	emailSendTimeout = 10 * time.Second
	maxPasswordBytes = 72
)

// authService implements AuthService interface
type authService struct {
	userRepo repository.UserRepository
	tokens   *utils.TokenManager
	hasher   *utils.PasswordHasher
	mailer   EmailSender
	cache    *UserCache
	logger   *zap.Logger
	metrics  *authMetrics

	// background tracks confirmation emails still being sent
	background sync.WaitGroup
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *utils.TokenManager,
	hasher *utils.PasswordHasher,
	mailer EmailSender,
	cache *UserCache,
	logger *zap.Logger,
	meter metric.Meter,
) (AuthService, error) {
	metrics, err := newAuthMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
		mailer:   mailer,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Register registers a new user
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, baseURL string) (*domain.User, error) {
	email := utils.SanitizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if utils.ContainsMarkup(username) {
		return nil, ValidationError("username must not contain markup")
	}

	if len(req.Password) > maxPasswordBytes {
		return nil, ValidationError("password must be at most %d bytes long", maxPasswordBytes)
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           domain.RoleUser,
	}

	if avatar, err := utils.GravatarURL(email); err == nil {
		user.Avatar = &avatar
	} else {
		s.logger.Debug("no default avatar", zap.String("username", username), zap.Error(err))
	}

	// Uniqueness is checked again by the store for concurrent registrations
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	s.metrics.registered(ctx)
	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	s.scheduleVerificationEmail(user.Email, user.Username, baseURL)

	return user, nil
}

// Login authenticates a user by username and password
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (pair *domain.TokenPair, err error) {
	defer func() { s.metrics.login(ctx, err) }()

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.HashedPassword) {
		return nil, ErrBadCredentials
	}

	if !user.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	return s.issueTokenPair(ctx, user)
}

// ConfirmEmail marks the email of a confirmation token as confirmed
func (s *authService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.ExtractEmail(token)
	if err != nil {
		return "", ErrInvalidEmailToken
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrVerification
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user.Confirmed {
		return MsgEmailAlreadyConfirmed, nil
	}

	if err := s.userRepo.ConfirmEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrVerification
		}
		return "", fmt.Errorf("failed to confirm email: %w", err)
	}

	s.invalidate(ctx, user.Username)
	s.logger.Info("Email confirmed", zap.Int64("user_id", user.ID))

	return MsgEmailConfirmed, nil
}

// RequestEmail sends a new confirmation email unless the address is already confirmed
func (s *authService) RequestEmail(ctx context.Context, req *dto.RequestEmailRequest, baseURL string) (string, error) {
	email := utils.SanitizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MsgCheckEmail, nil
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user.Confirmed {
		return MsgEmailAlreadyConfirmed, nil
	}

	s.scheduleVerificationEmail(user.Email, user.Username, baseURL)

	return MsgCheckEmail, nil
}

// Refresh exchanges the current refresh token for a new token pair
func (s *authService) Refresh(ctx context.Context, refreshToken string) (pair *domain.TokenPair, err error) {
	defer func() { s.metrics.refresh(ctx, err) }()

	user, err := s.tokens.VerifyRefresh(ctx, refreshToken, s.lookupUser)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.Info("Refresh token rejected")
		return nil, ErrInvalidRefresh
	}

	return s.issueTokenPair(ctx, user)
}

// Authenticate resolves the user owning an access token, consulting the cache first
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	username, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	cached, err := s.cache.Get(ctx, username)
	if err != nil {
		s.logger.Warn("User cache read failed", zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.logger.Warn("User cache write failed", zap.Error(err))
	}

	return user, nil
}

// Drain waits until background confirmation emails are sent or ctx is done
func (s *authService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("confirmation emails still pending: %w", ctx.Err())
	}
}

// issueTokenPair creates access and refresh tokens and stores the refresh token as the only valid one
func (s *authService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.IssueAccess(user.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefresh(user.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	s.invalidate(ctx, user.Username)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
	}, nil
}

// lookupUser returns nil without error when the user does not exist
func (s *authService) lookupUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *authService) invalidate(ctx context.Context, username string) {
	if err := s.cache.Delete(ctx, username); err != nil {
		s.logger.Warn("User cache invalidation failed", zap.String("username", username), zap.Error(err))
	}
}

// scheduleVerificationEmail sends the confirmation email in the background.
// The send outlives the request, so it gets its own deadline.
func (s *authService) scheduleVerificationEmail(email, username, host string) {
	token, err := s.tokens.IssueEmailToken(email)
	if err != nil {
		s.logger.Error("Failed to create email token", zap.String("username", username), zap.Error(err))
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
		defer cancel()

		if err := s.mailer.SendVerificationEmail(ctx, email, username, host, token); err != nil {
			s.logger.Error("Failed to send verification email", zap.String("username", username), zap.Error(err))
		}
	}()
}
