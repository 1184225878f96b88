package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable through the environment.
const (
	MediaBackendCloudinary = "cloudinary"
	MediaBackendMinio      = "minio"

	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string // optional; empty disables cache, idempotency and redis rate limiting
	JWTSecret      string
	JWTTTL         time.Duration
	Port           string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.
	DataStore      string   // mongo | memory
	AdminStore     string   // mongo | postgres | memory
	AdminUsername  string   // seed credential for createadmin and the memory admin store
	AdminPassword  string

	MediaBackend        string // cloudinary | minio
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
	MinioPublicURL      string

	MaxUploadBytes   int64
	TimelineCacheTTL time.Duration
	TrustedProxyHops int // reverse proxies appending X-Forwarded-For
	LogLevel         string
	LogFormat        string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	logFormat := "console"
	if env == "production" {
		logFormat = "json"
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/plant-journal")),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", ""),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTTTL:              getDuration("JWT_TTL", time.Hour),
		Port:                getEnv("PORT", "5000"),
		AllowedOrigins:      allowedOrigins,
		Environment:         env,
		DataStore:           strings.ToLower(getEnv("DATA_STORE", StoreMongo)),
		AdminStore:          strings.ToLower(getEnv("ADMIN_STORE", StoreMongo)),
		AdminUsername:       getEnv("ADMIN_USERNAME", "abhi"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		MediaBackend:        strings.ToLower(getEnv("MEDIA_BACKEND", MediaBackendCloudinary)),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "plant-growth"),
		MinioEndpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getEnv("MINIO_BUCKET", "plant-growth"),
		MinioUseSSL:         getBool("MINIO_USE_SSL", false),
		MinioPublicURL:      strings.TrimRight(getEnv("MINIO_PUBLIC_URL", "http://localhost:9000"), "/"),
		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		TimelineCacheTTL:    getDuration("TIMELINE_CACHE_TTL", 5*time.Minute),
		TrustedProxyHops:    getInt("TRUSTED_PROXY_HOPS", 0),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", logFormat),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// MediaConfigured reports whether the selected media backend has credentials.
func (c *Config) MediaConfigured() bool {
	switch c.MediaBackend {
	case MediaBackendMinio:
		return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
	default:
		return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s", "2h") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
