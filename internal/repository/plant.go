// Package repository persists plant entries and the admin credential.
package repository

import (
	"context"
	"strings"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
)

// Validation messages returned to clients verbatim.
const (
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgImageRequired       = `Image is required - ensure file field name is "image"`
	MsgCommentRequired     = "Comment text is required"
)

// PlantRepository stores journal entries with their embedded comments.
// Malformed ids are reported as not found.
type PlantRepository interface {
	Create(ctx context.Context, title, imageURL, description string) (*models.Plant, error)
	List(ctx context.Context) ([]models.Plant, error)
	Get(ctx context.Context, id string) (*models.Plant, error)
	Update(ctx context.Context, id string, update models.PlantUpdate) (*models.Plant, error)
	Delete(ctx context.Context, id string) error
	AppendComment(ctx context.Context, id, text string) (*models.Plant, error)
	RemoveComment(ctx context.Context, id, commentID string) (*models.Plant, error)
}

func validateNew(title, imageURL, description string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidation("image", MsgImageRequired)
	}
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidation("title", MsgTitleRequired)
	}
	if strings.TrimSpace(description) == "" {
		return apperrors.NewValidation("description", MsgDescriptionRequired)
	}
	return nil
}

func validateComment(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidation("text", MsgCommentRequired)
	}
	return nil
}
