package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/AnshRaj112/plant-journal-backend/internal/models"
)

var ErrAdminNotFound = errors.New("admin not found")

// AdminRepository holds the single admin credential record.
type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	// ReplaceAll removes every existing admin and stores admin as the only one.
	ReplaceAll(ctx context.Context, admin models.Admin) error
}

type MemoryAdminRepository struct {
	mu    sync.RWMutex
	admin *models.Admin
}

func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{}
}

func (r *MemoryAdminRepository) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.admin == nil || r.admin.Username != username {
		return nil, ErrAdminNotFound
	}
	cp := *r.admin
	return &cp, nil
}

func (r *MemoryAdminRepository) ReplaceAll(_ context.Context, admin models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = &admin
	return nil
}
