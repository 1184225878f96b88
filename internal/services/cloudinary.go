package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
)

// CloudinaryStore uploads images into a Cloudinary folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Store(ctx context.Context, upload Upload) (string, error) {
	_, body, err := CheckImage(upload)
	if err != nil {
		return "", err
	}
	// The SDK accepts io.Reader but not []byte.
	result, err := s.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		Folder:         s.folder,
		ResourceType:   "image",
		AllowedFormats: api.CldAPIArray{"jpg", "png", "jpeg"},
	})
	if err != nil {
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: fmt.Errorf("failed to upload to Cloudinary: %w", err)}
	}
	if result.Error.Message != "" {
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: errors.New(result.Error.Message)}
	}
	if result.SecureURL == "" {
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: errors.New("cloudinary returned no url")}
	}
	return result.SecureURL, nil
}
