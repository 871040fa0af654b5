package service

import (
	"context"
	"fmt"
	"io"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/repository"
	"go.uber.org/zap"
)

// userService implements UserService interface
type userService struct {
	userRepo repository.UserRepository
	uploader AvatarUploader
	cache    *UserCache
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, uploader AvatarUploader, cache *UserCache, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
		cache:    cache,
		logger:   logger,
	}
}

// UpdateAvatar uploads a new avatar image and stores its URL on the user
func (s *userService) UpdateAvatar(ctx context.Context, user *domain.User, file io.Reader) (*domain.User, error) {
	url, err := s.uploader.Upload(ctx, file, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	updated, err := s.userRepo.UpdateAvatar(ctx, user.Email, url)
	if err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	if err := s.cache.Delete(ctx, user.Username); err != nil {
		s.logger.Warn("User cache invalidation failed", zap.String("username", user.Username), zap.Error(err))
	}

	s.logger.Info("Avatar updated", zap.Int64("user_id", updated.ID))

	return updated, nil
}
