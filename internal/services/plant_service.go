package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
)

// CreatePlantInput is a new timeline entry as submitted by the admin.
type CreatePlantInput struct {
	Title          string
	Description    string
	Image          *Upload
	IdempotencyKey string
}

// UpdatePlantInput carries the optional fields of an entry update.
type UpdatePlantInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	Image       *Upload
}

// PlantService orchestrates validation, media upload, persistence and cache
// invalidation for journal entries.
type PlantService struct {
	repo  repository.PlantRepository
	media MediaStore
	cache TimelineCache
	idem  IdempotencyStore
}

// NewPlantService wires the entry service. media may be nil when no store is
// configured; cache and idem fall back to no-op and in-memory variants.
func NewPlantService(repo repository.PlantRepository, media MediaStore, cache TimelineCache, idem IdempotencyStore) *PlantService {
	if cache == nil {
		cache = NoopTimelineCache{}
	}
	if idem == nil {
		idem = NewMemoryIdempotencyStore()
	}
	return &PlantService{repo: repo, media: media, cache: cache, idem: idem}
}

func (s *PlantService) List(ctx context.Context) ([]models.Plant, error) {
	plants, gen, ok := s.cache.Get(ctx)
	if ok {
		return plants, nil
	}
	plants, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, gen, plants)
	return plants, nil
}

// Create stores a new entry. The bool result reports whether the entry was
// returned from an earlier submission with the same idempotency key.
func (s *PlantService) Create(ctx context.Context, in CreatePlantInput) (*models.Plant, bool, error) {
	// Reject before spending any upload quota.
	if in.Image == nil {
		return nil, false, apperrors.NewValidation("image", repository.MsgImageRequired)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, false, apperrors.NewValidation("title", repository.MsgTitleRequired)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, false, apperrors.NewValidation("description", repository.MsgDescriptionRequired)
	}

	if in.IdempotencyKey != "" {
		p, err := s.claim(ctx, in.IdempotencyKey)
		if err != nil || p != nil {
			return p, p != nil, err
		}
	}

	p, err := s.create(ctx, in)
	if in.IdempotencyKey != "" {
		if err != nil {
			if relErr := s.idem.Release(ctx, in.IdempotencyKey); relErr != nil {
				logging.Ctx(ctx).Warn().Err(relErr).Msg("failed to release idempotency key")
			}
		} else if cErr := s.idem.Complete(ctx, in.IdempotencyKey, p.ID.Hex()); cErr != nil {
			logging.Ctx(ctx).Warn().Err(cErr).Str("plant_id", p.ID.Hex()).Msg("failed to record idempotency key")
		}
	}
	return p, false, err
}

// claim returns the earlier entry for key, or nil once the caller owns key.
func (s *PlantService) claim(ctx context.Context, key string) (*models.Plant, error) {
	existing, err := s.idem.Begin(ctx, key)
	if err != nil || existing == "" {
		return nil, err
	}
	p, err := s.repo.Get(ctx, existing)
	if err == nil {
		return p, nil
	}
	if !apperrors.IsNotFound(err, apperrors.ResourcePlant) {
		return nil, err
	}
	// The earlier entry was deleted since; treat this as a fresh submission.
	if err := s.idem.Release(ctx, key); err != nil {
		return nil, err
	}
	existing, err = s.idem.Begin(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return nil, apperrors.ErrConflict
	}
	return nil, nil
}

func (s *PlantService) create(ctx context.Context, in CreatePlantInput) (*models.Plant, error) {
	url, err := s.store(ctx, *in.Image)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, in.Title, url, in.Description)
	if err != nil {
		logOrphan(ctx, url, err)
		return nil, err
	}
	s.cache.Invalidate(ctx)
	logging.Ctx(ctx).Info().Str("plant_id", p.ID.Hex()).Msg("plant entry created")
	return p, nil
}

// Update applies the given fields. Empty title or description leave the
// stored values unchanged.
func (s *PlantService) Update(ctx context.Context, id string, in UpdatePlantInput) (*models.Plant, error) {
	// Checked first so a missing entry never costs an upload.
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	var upd models.PlantUpdate
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		t := strings.TrimSpace(*in.Title)
		upd.Title = &t
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		upd.Description = in.Description
	}
	upd.Date = in.Date

	var url string
	if in.Image != nil {
		var err error
		if url, err = s.store(ctx, *in.Image); err != nil {
			return nil, err
		}
		upd.Image = &url
	}

	p, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if url != "" {
			logOrphan(ctx, url, err)
		}
		return nil, err
	}
	if !upd.IsEmpty() {
		s.cache.Invalidate(ctx)
	}
	return p, nil
}

func (s *PlantService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	logging.Ctx(ctx).Info().Str("plant_id", id).Msg("plant entry removed")
	return nil
}

func (s *PlantService) AddComment(ctx context.Context, id, text string) (*models.Plant, error) {
	p, err := s.repo.AppendComment(ctx, id, text)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return p, nil
}

func (s *PlantService) RemoveComment(ctx context.Context, id, commentID string) (*models.Plant, error) {
	p, err := s.repo.RemoveComment(ctx, id, commentID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return p, nil
}

func (s *PlantService) store(ctx context.Context, upload Upload) (string, error) {
	_, body, err := CheckImage(upload)
	if err != nil {
		return "", err
	}
	upload.Body = body
	if s.media == nil {
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: errors.New("no media store configured")}
	}
	return s.media.Store(ctx, upload)
}

// logOrphan records an uploaded image whose entry was never written so it
// can be removed from the media store later.
func logOrphan(ctx context.Context, url string, cause error) {
	logging.Ctx(ctx).Error().Err(cause).Str("orphan_url", url).Msg("image uploaded but entry not saved")
}
