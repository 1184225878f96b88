// Command createadmin replaces the admin credential with a new username and
// password. Any existing admin record is removed first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/AnshRaj112/plant-journal-backend/internal/config"
	"github.com/AnshRaj112/plant-journal-backend/internal/database"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
	"github.com/AnshRaj112/plant-journal-backend/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})

	username := flag.String("username", cfg.AdminUsername, "admin username")
	password := flag.String("password", cfg.AdminPassword, "admin password (prompted when empty)")
	store := flag.String("store", cfg.AdminStore, "admin store: mongo or postgres")
	flag.Parse()

	name := utils.NormalizeUsername(*username)
	if err := utils.ValidateUsername(name); err != nil {
		fail(err)
	}

	pw := *password
	if pw == "" {
		var err error
		if pw, err = promptPassword(); err != nil {
			fail(err)
		}
	}
	if err := utils.ValidatePassword(pw); err != nil {
		fail(err)
	}

	hash, err := utils.HashPassword(pw)
	if err != nil {
		fail(err)
	}

	repo, closeStore, err := openStore(strings.ToLower(*store), cfg)
	if err != nil {
		fail(err)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admin := models.Admin{
		ID:           uuid.NewString(),
		Username:     name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.ReplaceAll(ctx, admin); err != nil {
		fail(fmt.Errorf("store admin: %w", err))
	}
	logging.Info().Str("username", name).Str("store", *store).Msg("admin user created")
}

func openStore(kind string, cfg *config.Config) (repository.AdminRepository, func(), error) {
	switch kind {
	case config.StorePostgres:
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return repository.NewPostgresAdminRepository(database.PostgresDB), func() { database.DisconnectPostgres() }, nil
	case config.StoreMongo:
		if err := database.Connect(cfg.MongoURI); err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return repository.NewMongoAdminRepository(database.DB), func() { database.Disconnect() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported admin store %q", kind)
	}
}

func promptPassword() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("password required: pass -password or set ADMIN_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func fail(err error) {
	logging.Error().Err(err).Msg("createadmin failed")
	os.Exit(1)
}
