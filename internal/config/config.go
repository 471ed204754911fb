// Package config reads the service settings from the environment. A .env
// file in the working directory is loaded first and never overrides
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration

	Store       string
	DatabaseURL string
	// RedisURL enables the redis change bus and the catalog cache. Empty
	// means a single process with an in-memory bus.
	RedisURL string

	ArchiveCap     int
	RejectExplicit bool
	// Cooldown between two submissions of one device; zero disables it.
	Cooldown        time.Duration
	JanitorInterval time.Duration

	SpotifyClientID     string
	SpotifyClientSecret string
	CatalogTimeout      time.Duration
	CatalogCacheTTL     time.Duration
	SearchPageSize      int
	CatalogRPM          int

	JWTSecret             string
	ModeratorPasswordHash string
	TokenTTL              time.Duration

	CORSOrigins []string
	BodyLimit   int64

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads .env (if present) and the environment. It does not validate;
// call Validate before serving.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Port:            getenv("PORT", "3005"),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Store:       strings.ToLower(getenv("STORE", StoreMemory)),
		DatabaseURL: getenv("DATABASE_URL", ""),
		RedisURL:    getenv("REDIS_URL", ""),

		ArchiveCap:      getenvInt("ARCHIVE_CAP", 50),
		RejectExplicit:  getenvBool("REJECT_EXPLICIT", false),
		Cooldown:        getenvDuration("COOLDOWN", 0),
		JanitorInterval: getenvDuration("ARCHIVE_JANITOR_INTERVAL", 5*time.Minute),

		SpotifyClientID:     getenv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getenv("SPOTIFY_CLIENT_SECRET", ""),
		CatalogTimeout:      getenvDuration("CATALOG_TIMEOUT", 5*time.Second),
		CatalogCacheTTL:     getenvDuration("CATALOG_CACHE_TTL", 24*time.Hour),
		SearchPageSize:      getenvInt("SEARCH_PAGE_SIZE", 3),
		CatalogRPM:          getenvInt("CATALOG_RPM", 60),

		JWTSecret:             getenv("JWT_SECRET", ""),
		ModeratorPasswordHash: getenv("MODERATOR_PASSWORD_HASH", ""),
		TokenTTL:              getenvDuration("TOKEN_TTL", 12*time.Hour),

		CORSOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		BodyLimit:   int64(getenvInt("BODY_LIMIT", 16*1024)),

		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFile:       getenv("LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getenvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getenvInt("LOG_MAX_AGE_DAYS", 30),
	}
}

// Validate reports the first setting that keeps the server from starting.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is empty, cannot issue moderator tokens")
	}
	if c.ModeratorPasswordHash == "" {
		return errors.New("config: MODERATOR_PASSWORD_HASH is empty, run `service hash-password`")
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}
	if c.ArchiveCap <= 0 {
		return fmt.Errorf("config: ARCHIVE_CAP must be positive, got %d", c.ArchiveCap)
	}
	if c.SearchPageSize <= 0 {
		return fmt.Errorf("config: SEARCH_PAGE_SIZE must be positive, got %d", c.SearchPageSize)
	}
	if c.Cooldown < 0 {
		return errors.New("config: COOLDOWN must not be negative")
	}
	return nil
}

// CatalogEnabled reports whether Spotify credentials are configured.
func (c Config) CatalogEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
