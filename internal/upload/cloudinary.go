// Package upload stores user avatars in Cloudinary
package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const avatarTransformation = "c_fill,h_250,w_250"

// Config holds Cloudinary credentials
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// UploadPrefix overrides the Cloudinary API host
	UploadPrefix string
}

// CloudinaryUploader uploads avatars, one image per user, overwriting the previous one
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader creates a Cloudinary client
func NewCloudinaryUploader(cfg Config) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	if cfg.UploadPrefix != "" {
		cld.Config.API.UploadPrefix = cfg.UploadPrefix
	}

	return &CloudinaryUploader{cld: cld, folder: cfg.Folder}, nil
}

// Upload stores file as the avatar of username and returns its HTTPS URL
func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, username string) (string, error) {
	result, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       username,
		Folder:         u.folder,
		Overwrite:      api.Bool(true),
		Transformation: avatarTransformation,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected avatar: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned no url for %s", username)
	}

	return result.SecureURL, nil
}
