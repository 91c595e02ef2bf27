package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10080, cfg.JWTExpiresMin)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, 25, cfg.UploadMaxMB)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_EXPIRES_MIN", "60")
	t.Setenv("APP_BASE_URL", "http://api.local/")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("UPLOAD_MAX_MB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 60, cfg.JWTExpiresMin)
	assert.Equal(t, "http://api.local", cfg.AppBaseURL)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 25, cfg.UploadMaxMB)
}

func TestLoadPanicsOnMissingSecret(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "")

	assert.PanicsWithValue(t, "missing env: JWT_SECRET", func() { Load() })
}
