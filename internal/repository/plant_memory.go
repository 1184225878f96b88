package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
)

// MemoryPlantRepository keeps entries in process memory. Used for local runs
// without MongoDB and in tests.
type MemoryPlantRepository struct {
	mu     sync.RWMutex
	plants map[primitive.ObjectID]*models.Plant
	now    func() time.Time
}

func NewMemoryPlantRepository() *MemoryPlantRepository {
	return &MemoryPlantRepository{
		plants: make(map[primitive.ObjectID]*models.Plant),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for entry and comment dates.
func (r *MemoryPlantRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *MemoryPlantRepository) Create(_ context.Context, title, imageURL, description string) (*models.Plant, error) {
	if err := validateNew(title, imageURL, description); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &models.Plant{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(title),
		Image:       imageURL,
		Description: description,
		Date:        r.now().UTC(),
		Comments:    []models.Comment{},
	}
	r.plants[p.ID] = p
	return clonePlant(p), nil
}

func (r *MemoryPlantRepository) List(_ context.Context) ([]models.Plant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Plant, 0, len(r.plants))
	for _, p := range r.plants {
		out = append(out, *clonePlant(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *MemoryPlantRepository) Get(_ context.Context, id string) (*models.Plant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return clonePlant(p), nil
}

func (r *MemoryPlantRepository) Update(_ context.Context, id string, update models.PlantUpdate) (*models.Plant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Date != nil {
		p.Date = update.Date.UTC()
	}
	if update.Image != nil {
		p.Image = *update.Image
	}
	return clonePlant(p), nil
}

func (r *MemoryPlantRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	delete(r.plants, p.ID)
	return nil
}

func (r *MemoryPlantRepository) AppendComment(_ context.Context, id, text string) (*models.Plant, error) {
	if err := validateComment(text); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	p.Comments = append(p.Comments, models.Comment{ID: primitive.NewObjectID(), Text: text, Date: r.now().UTC()})
	return clonePlant(p), nil
}

func (r *MemoryPlantRepository) RemoveComment(_ context.Context, id, commentID string) (*models.Plant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	for i, c := range p.Comments {
		if c.ID.Hex() == commentID {
			p.Comments = append(p.Comments[:i:i], p.Comments[i+1:]...)
			return clonePlant(p), nil
		}
	}
	return nil, apperrors.NewNotFound(apperrors.ResourceComment, commentID)
}

// lookup must be called with mu held.
func (r *MemoryPlantRepository) lookup(id string) (*models.Plant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	p, ok := r.plants[oid]
	if !ok {
		return nil, apperrors.NewNotFound(apperrors.ResourcePlant, id)
	}
	return p, nil
}

func clonePlant(p *models.Plant) *models.Plant {
	cp := *p
	cp.Comments = append([]models.Comment{}, p.Comments...)
	return &cp
}
