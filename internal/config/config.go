// Package config loads service configuration from the environment. Every
// dependency that needs a setting receives it through a constructor; nothing
// reads the environment after startup.
package config

import (
	"os"
	"strconv"
	"time"
)

const envPrefix = "ARKIVA_"

// Config carries all runtime settings for the API server and its tools.
type Config struct {
	Addr        string
	PostgresDSN string

	AuthSecret string
	TokenTTL   time.Duration

	UploadDir     string
	MaxUploadSize int64

	RateBurst  int
	RatePerSec int
}

// Load reads ARKIVA_* environment variables, applying defaults for anything
// unset. It never fails: required settings (like the auth secret) are
// validated by the components that consume them.
func Load() Config {
	return Config{
		Addr:          getString("ADDR", ":8080"),
		PostgresDSN:   getString("PG_DSN", ""),
		AuthSecret:    getString("AUTH_SECRET", ""),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour),
		UploadDir:     getString("UPLOAD_DIR", "uploads/documents"),
		MaxUploadSize: getInt64("MAX_UPLOAD_SIZE", 20<<20),
		RateBurst:     getInt("RATE_BURST", 20),
		RatePerSec:    getInt("RATE_PER_SEC", 10),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
