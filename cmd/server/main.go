package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/plant-journal-backend/internal/auth"
	"github.com/AnshRaj112/plant-journal-backend/internal/config"
	"github.com/AnshRaj112/plant-journal-backend/internal/database"
	"github.com/AnshRaj112/plant-journal-backend/internal/handlers"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/middleware"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
	"github.com/AnshRaj112/plant-journal-backend/internal/routes"
	"github.com/AnshRaj112/plant-journal-backend/internal/services"
	"github.com/AnshRaj112/plant-journal-backend/pkg/clientip"
)

const (
	// Per-IP budget for the redis limiter outside production.
	devRateLimit = 120
	// Public comment posts per IP per minute.
	commentRateLimit = 10
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Info().Msg("No .env file found")
	}
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	clientip.Default = clientip.Resolver{TrustedHops: cfg.TrustedProxyHops}

	if cfg.IsProduction() && cfg.JWTSecret == "your-secret-key-change-in-production" {
		logging.Fatal().Msg("JWT_SECRET must be set in production")
	}

	// MongoDB backs entries and, by default, the admin record
	if cfg.DataStore == config.StoreMongo || cfg.AdminStore == config.StoreMongo {
		if err := database.Connect(cfg.MongoURI); err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to MongoDB (check IP allow-list, URI format and credentials)")
		}
		defer database.Disconnect()
	}

	plantRepo := buildPlantRepository(cfg)
	adminRepo := buildAdminRepository(cfg)
	if cfg.AdminStore == config.StorePostgres {
		defer database.DisconnectPostgres()
	}

	// Redis is optional: cache, idempotency and shared rate limiting
	var (
		cache services.TimelineCache    = services.NoopTimelineCache{}
		idem  services.IdempotencyStore = services.NewMemoryIdempotencyStore()
	)
	if cfg.RedisURI != "" {
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			logging.Warn().Err(err).Msg("Redis unavailable; timeline cache and shared idempotency disabled")
		} else {
			defer database.DisconnectRedis()
			cache = services.NewRedisTimelineCache(database.RedisClient, cfg.TimelineCacheTTL)
			idem = services.NewRedisIdempotencyStore(database.RedisClient)
		}
	}

	media := buildMediaStore(cfg)
	plantSvc := services.NewPlantService(plantRepo, media, cache, idem)
	authSvc := auth.NewService(adminRepo, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5, "application/json"))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit when Redis is available
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(handlers.LoginPath) {
			r.Use(mw)
		}
		logging.Info().Msg("Production security enabled (security headers, per-IP + login rate limiting)")
	} else if database.RedisClient != nil {
		r.Use(middleware.RedisRateLimit(database.RedisClient, devRateLimit))
	}

	routes.SetupRoutes(r, routes.Deps{
		Plants:       handlers.NewPlantHandler(plantSvc, cfg.MaxUploadBytes),
		Auth:         handlers.NewAuthHandler(authSvc),
		RequireAdmin: middleware.RequireAdmin(authSvc),
		CommentLimit: commentRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("Plant journal backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildPlantRepository(cfg *config.Config) repository.PlantRepository {
	if cfg.DataStore == config.StoreMemory {
		logging.Warn().Msg("DATA_STORE=memory: entries are lost on restart")
		return repository.NewMemoryPlantRepository()
	}
	repo := repository.NewMongoPlantRepository(database.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureIndexes(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to ensure plant indexes")
	}
	return repo
}

func buildAdminRepository(cfg *config.Config) repository.AdminRepository {
	switch cfg.AdminStore {
	case config.StorePostgres:
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		return repository.NewPostgresAdminRepository(database.PostgresDB)
	case config.StoreMemory:
		repo := repository.NewMemoryAdminRepository()
		if cfg.AdminPassword == "" {
			logging.Warn().Msg("ADMIN_STORE=memory without ADMIN_PASSWORD: admin login disabled")
			return repo
		}
		if err := seedAdmin(context.Background(), repo, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed admin")
		}
		return repo
	default:
		return repository.NewMongoAdminRepository(database.DB)
	}
}

// buildMediaStore returns nil when the selected backend has no credentials;
// uploads then fail with a server error while reads keep working.
func buildMediaStore(cfg *config.Config) services.MediaStore {
	if !cfg.MediaConfigured() {
		logging.Warn().Str("backend", cfg.MediaBackend).Msg("Media store credentials not found. Image uploads will not be available")
		return nil
	}

	var (
		store services.MediaStore
		err   error
	)
	switch cfg.MediaBackend {
	case config.MediaBackendMinio:
		var m *services.MinioStore
		m, err = services.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if bErr := m.EnsureBucket(ctx); bErr != nil {
				logging.Warn().Err(bErr).Str("bucket", cfg.MinioBucket).Msg("could not verify MinIO bucket")
			}
			cancel()
			store = m
		}
	default:
		var c *services.CloudinaryStore
		c, err = services.NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err == nil {
			store = c
		}
	}
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to initialize media store. Image uploads will not be available")
		return nil
	}

	logging.Info().Str("backend", cfg.MediaBackend).Msg("Media store initialized")
	return services.NewBreakerStore(cfg.MediaBackend, store, 5, 30*time.Second)
}
