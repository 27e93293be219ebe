// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AdminBaseURL      string
	AdminAPIKey       string
	SyncInterval      time.Duration
	ListenAddr        string
	DBPath            string
	PageSize          int
	BatchWindowSize   int
	PreserveSelection bool
}

// HasAdminEndpoint returns true when an admin base URL is configured. Used by
// the composition root to decide whether to create a real admin client at
// startup or start with a nil client in the provider.
func (c *Config) HasAdminEndpoint() bool {
	return c.AdminBaseURL != ""
}

// Load reads configuration from the environment (and a .env file when one is
// present) and returns a validated Config. The admin endpoint
// (CREDPANEL_ADMIN_URL, CREDPANEL_ADMIN_API_KEY) is optional; without it the
// panel starts but syncing and batch actions stay inactive until an endpoint
// is provided at runtime. Optional variables with defaults:
// CREDPANEL_SYNC_INTERVAL (1m), CREDPANEL_LISTEN_ADDR (127.0.0.1:8080),
// CREDPANEL_DB_PATH (credpanel.db), CREDPANEL_PAGE_SIZE (10),
// CREDPANEL_BATCH_WINDOW (10), CREDPANEL_PRESERVE_SELECTION (true).
func Load() (*Config, error) {
	_ = godotenv.Load()

	adminURL := os.Getenv("CREDPANEL_ADMIN_URL")
	adminKey := os.Getenv("CREDPANEL_ADMIN_API_KEY")

	syncInterval := time.Minute
	if v, ok := os.LookupEnv("CREDPANEL_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		syncInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CREDPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "credpanel.db"
	if v, ok := os.LookupEnv("CREDPANEL_DB_PATH"); ok {
		dbPath = v
	}

	pageSize := 10
	if v, ok := os.LookupEnv("CREDPANEL_PAGE_SIZE"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("CREDPANEL_PAGE_SIZE must be a positive integer, got %q", v)
		}
		pageSize = parsed
	}

	windowSize := 10
	if v, ok := os.LookupEnv("CREDPANEL_BATCH_WINDOW"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("CREDPANEL_BATCH_WINDOW must be a positive integer, got %q", v)
		}
		windowSize = parsed
	}

	preserveSelection := true
	if v, ok := os.LookupEnv("CREDPANEL_PRESERVE_SELECTION"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPANEL_PRESERVE_SELECTION must be a boolean, got %q", v)
		}
		preserveSelection = parsed
	}

	return &Config{
		AdminBaseURL:      adminURL,
		AdminAPIKey:       adminKey,
		SyncInterval:      syncInterval,
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
		PageSize:          pageSize,
		BatchWindowSize:   windowSize,
		PreserveSelection: preserveSelection,
	}, nil
}
