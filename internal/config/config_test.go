package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IMAGEKIT_PRIVATE_KEY", "private_key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerifyTokenLifetime)
	assert.Equal(t, "private_key", cfg.ImageKit.PrivateKey)
	assert.Equal(t, "https://upload.imagekit.io/api/v1/files/upload", cfg.ImageKit.UploadURL)
	assert.Equal(t, 60*time.Second, cfg.ImageKit.UploadTimeout)
	assert.Equal(t, int64(20<<20), cfg.Staging.MaxUploadBytes)
	assert.Equal(t, uint64(64<<20), cfg.Staging.MinFreeBytes)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/photofeed")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("UPLOAD_TIMEOUT", "0s")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "postgres://u:p@localhost/photofeed", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.ImageKit.UploadTimeout)
	assert.Equal(t, int64(5<<20), cfg.Staging.MaxUploadBytes)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("IMAGEKIT_PRIVATE_KEY", "private_key")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IMAGEKIT_PRIVATE_KEY", "")
	_, err = Load()
	assert.ErrorContains(t, err, "IMAGEKIT_PRIVATE_KEY")
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"PORT":           "eighty",
		"TOKEN_LIFETIME": "-1h",
		"UPLOAD_TIMEOUT": "soon",
		"MAX_UPLOAD_MB":  "0",
	} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
