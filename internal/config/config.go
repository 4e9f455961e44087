// Package config reads the service configuration surface from the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the recognized runtime options.
type Config struct {
	HTTPPort string

	// DatabaseURL points at the Postgres instance holding component
	// descriptors. Optional: without it the API runs with the in-memory
	// component source only.
	DatabaseURL string

	// RedisAddr enables the outward event publisher when set.
	RedisAddr string

	// CacheDir is the artifact cache directory.
	CacheDir string

	// Concurrency bounds simultaneously running renders (>=1).
	Concurrency int

	MaxCacheEntries int
	MaxCacheAge     time.Duration

	// JobTimeout is the per-job hard timeout enforced by the queue.
	JobTimeout time.Duration

	// WaitTimeout is the render client's overall completion-wait timeout.
	WaitTimeout time.Duration

	StorageProvider string
	StorageRoot     string
	ArchiveEnabled  bool
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		HTTPPort:        Env("HTTP_PORT", "8080"),
		DatabaseURL:     Env("DATABASE_URL", ""),
		RedisAddr:       Env("REDIS_ADDR", ""),
		CacheDir:        Env("CACHE_DIR", "/data/render-cache"),
		Concurrency:     atLeast(IntEnv("RENDER_CONCURRENCY", 1), 1),
		MaxCacheEntries: atLeast(IntEnv("CACHE_MAX_ENTRIES", 1000), 1),
		MaxCacheAge:     MillisEnv("CACHE_MAX_AGE_MS", 30*24*time.Hour),
		JobTimeout:      MillisEnv("JOB_TIMEOUT_MS", 10*time.Minute),
		WaitTimeout:     MillisEnv("WAIT_TIMEOUT_MS", 5*time.Minute),
		StorageProvider: Env("STORAGE_PROVIDER", "localfs"),
		StorageRoot:     Env("STORAGE_LOCAL_ROOT", "/data/artifacts"),
		ArchiveEnabled:  BoolEnv("ARTIFACT_ARCHIVE", false),
	}
}

// Env reads an env var with a default.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// MustEnv reads an env var and panics if it is missing.
func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

// IntEnv reads an env var as int. If empty or invalid, returns def.
func IntEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// BoolEnv reads an env var as bool. If empty or invalid, returns def.
func BoolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// MillisEnv reads an env var as a millisecond count. If empty, zero, or
// invalid, returns def.
func MillisEnv(k string, def time.Duration) time.Duration {
	n := IntEnv(k, 0)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func atLeast(v, min int) int {
	if v < min {
		return min
	}
	return v
}
