package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/plant-journal-backend/internal/models"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
	"github.com/AnshRaj112/plant-journal-backend/pkg/utils"
)

// seedAdmin installs the configured credentials as the only admin.
func seedAdmin(ctx context.Context, repo repository.AdminRepository, username, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	err = repo.ReplaceAll(ctx, models.Admin{
		ID:           "admin",
		Username:     utils.NormalizeUsername(username),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("store admin: %w", err)
	}
	return nil
}
