package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
)

// MinioStore uploads images to an S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket, publicURL: publicURL, now: time.Now}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *MinioStore) Store(ctx context.Context, upload Upload) (string, error) {
	ext, body, err := CheckImage(upload)
	if err != nil {
		return "", err
	}

	key := objectKey(s.now(), ext)
	contentType := "image/jpeg"
	if ext == "png" {
		contentType = "image/png"
	}
	size := upload.Size
	if size <= 0 {
		size = -1
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: fmt.Errorf("failed to upload to MinIO: %w", err)}
	}
	return s.publicURL + "/" + s.bucket + "/" + key, nil
}

func objectKey(t time.Time, ext string) string {
	return fmt.Sprintf("plants/%s/%s.%s", t.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}
