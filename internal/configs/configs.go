/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the web gateway by reading operating system environment variables: the running
environment, port, CORS origins, the VibeCheck API origin and mock mode, preference sync timing,
and the local-storage backend.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// VibeCheck API Settings
	APIBaseURL     string
	RequestTimeout time.Duration
	MockMode       bool
	MockLatency    time.Duration
	MockSigningKey string

	// Preference Sync Settings
	PreferenceQuietPeriod time.Duration
	PreferenceSavedWindow time.Duration
	PreferenceIdleTimeout time.Duration

	// Local Storage Settings
	StorageDriver    string
	RedisURL         string
	DatabaseDSN      string
	IdentityCacheTTL time.Duration
}

// IsDevelopment reports whether the gateway runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3000"
	}
	cfg.Port, err = strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	// --- VibeCheck API Settings ---
	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8000"
	}
	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL %q must be an absolute URL", cfg.APIBaseURL)
	}

	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.MockMode, err = boolEnv("MOCK_MODE", false); err != nil {
		return nil, err
	}

	if cfg.MockLatency, err = durationEnv("MOCK_LATENCY", 800*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.MockSigningKey = os.Getenv("MOCK_SIGNING_KEY")
	if cfg.MockSigningKey == "" {
		cfg.MockSigningKey = "vibecheck-mock-signing-key"
	}

	// --- Preference Sync Settings ---
	if cfg.PreferenceQuietPeriod, err = durationEnv("PREFERENCE_QUIET_PERIOD", time.Second); err != nil {
		return nil, err
	}
	if cfg.PreferenceSavedWindow, err = durationEnv("PREFERENCE_SAVED_WINDOW", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.PreferenceIdleTimeout, err = durationEnv("PREFERENCE_IDLE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	// --- Local Storage Settings ---
	cfg.StorageDriver = strings.ToLower(os.Getenv("STORAGE_DRIVER"))
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageMemory
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	switch cfg.StorageDriver {
	case StorageMemory:
	case StorageRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable is required for the redis storage driver")
		}
	case StoragePostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres storage driver")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.IdentityCacheTTL, err = durationEnv("IDENTITY_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, raw)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return b, nil
}
