package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, "3005", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 50, cfg.ArchiveCap)
	assert.Equal(t, 3, cfg.SearchPageSize)
	assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
	assert.Zero(t, cfg.Cooldown)
	assert.False(t, cfg.RejectExplicit)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.CatalogEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE", "Postgres")
	t.Setenv("ARCHIVE_CAP", "20")
	t.Setenv("REJECT_EXPLICIT", "true")
	t.Setenv("COOLDOWN", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	cfg := FromEnv()
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 20, cfg.ArchiveCap)
	assert.True(t, cfg.RejectExplicit)
	assert.Equal(t, 90*time.Second, cfg.Cooldown)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.CatalogEnabled())
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ARCHIVE_CAP", "many")
	t.Setenv("REJECT_EXPLICIT", "maybe")
	t.Setenv("CATALOG_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 50, cfg.ArchiveCap)
	assert.False(t, cfg.RejectExplicit)
	assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := FromEnv()
		c.JWTSecret = "s"
		c.ModeratorPasswordHash = "$2a$10$hash"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"missing hash", func(c *Config) { c.ModeratorPasswordHash = "" }, "MODERATOR_PASSWORD_HASH"},
		{"postgres without dsn", func(c *Config) { c.Store = StorePostgres }, "DATABASE_URL"},
		{"postgres with dsn", func(c *Config) { c.Store = StorePostgres; c.DatabaseURL = "postgres://x" }, ""},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "unknown STORE"},
		{"bad cap", func(c *Config) { c.ArchiveCap = 0 }, "ARCHIVE_CAP"},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }, "COOLDOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
