package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort  int
	DatabaseURL string
	LogLevel    string
	CORSOrigins []string
	RedisURL    string // Empty means feed events stay in-process

	Auth     AuthConfig
	ImageKit ImageKitConfig
	Staging  StagingConfig
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret           string
	TokenLifetime       time.Duration
	ResetTokenLifetime  time.Duration
	VerifyTokenLifetime time.Duration
}

// ImageKitConfig holds the image host credentials and upload endpoint.
type ImageKitConfig struct {
	PrivateKey    string
	PublicKey     string
	UploadURL     string
	Folder        string
	UploadTimeout time.Duration // Zero disables the client timeout
}

// StagingConfig controls where incoming files are buffered before upload.
type StagingConfig struct {
	Dir            string
	MinFreeBytes   uint64
	MaxUploadBytes int64
	MaxAge         time.Duration
	SweepSchedule  string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	privateKey := os.Getenv("IMAGEKIT_PRIVATE_KEY")
	if privateKey == "" {
		return nil, errors.New("IMAGEKIT_PRIVATE_KEY must be set")
	}

	tokenLifetime, err := getDuration("TOKEN_LIFETIME", "1h")
	if err != nil {
		return nil, err
	}
	resetLifetime, err := getDuration("RESET_TOKEN_LIFETIME", "1h")
	if err != nil {
		return nil, err
	}
	verifyLifetime, err := getDuration("VERIFY_TOKEN_LIFETIME", "24h")
	if err != nil {
		return nil, err
	}
	uploadTimeout, err := getDuration("UPLOAD_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	maxAge, err := getDuration("STAGING_MAX_AGE", "1h")
	if err != nil {
		return nil, err
	}
	minFreeMB, err := strconv.ParseUint(getEnv("STAGING_MIN_FREE_MB", "64"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STAGING_MIN_FREE_MB: %w", err)
	}
	maxUploadMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "20"), 10, 64)
	if err != nil || maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	return &Config{
		ServerPort:  port,
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://./photofeed.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RedisURL:    os.Getenv("REDIS_URL"),
		Auth: AuthConfig{
			JWTSecret:           secret,
			TokenLifetime:       tokenLifetime,
			ResetTokenLifetime:  resetLifetime,
			VerifyTokenLifetime: verifyLifetime,
		},
		ImageKit: ImageKitConfig{
			PrivateKey:    privateKey,
			PublicKey:     os.Getenv("IMAGEKIT_PUBLIC_KEY"),
			UploadURL:     getEnv("IMAGEKIT_UPLOAD_URL", "https://upload.imagekit.io/api/v1/files/upload"),
			Folder:        os.Getenv("IMAGEKIT_FOLDER"),
			UploadTimeout: uploadTimeout,
		},
		Staging: StagingConfig{
			Dir:            getEnv("STAGING_DIR", filepath.Join(os.TempDir(), "photofeed-staging")),
			MinFreeBytes:   minFreeMB << 20,
			MaxUploadBytes: maxUploadMB << 20,
			MaxAge:         maxAge,
			SweepSchedule:  getEnv("STAGING_SWEEP_SCHEDULE", "*/15 * * * *"),
		},
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
