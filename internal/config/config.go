package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath        string
	DiagnosisReportPath string
	FundAPIBaseURL      string
	LogLevel            string
	Port                int
	DevMode             bool

	// RefreshConcurrency bounds in-flight fund refreshes during a batch run.
	RefreshConcurrency int

	// Cron schedules for background jobs.
	NavRefreshSchedule string
	SnapshotSchedule   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8000),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		DatabasePath:        getEnv("DATABASE_PATH", "./data/mosaic.db"),
		DiagnosisReportPath: getEnv("DIAGNOSIS_REPORT_PATH", "./data/diagnosis_report.json"),
		FundAPIBaseURL:      getEnv("FUND_API_BASE_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RefreshConcurrency:  getEnvAsInt("REFRESH_CONCURRENCY", 3),
		NavRefreshSchedule:  getEnv("NAV_REFRESH_SCHEDULE", "0 0 19 * * *"),
		SnapshotSchedule:    getEnv("SNAPSHOT_SCHEDULE", "0 30 19 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
// A missing database path is the "not configured" state: every data operation
// depends on it, so startup fails instead of limping along.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DiagnosisReportPath == "" {
		return fmt.Errorf("DIAGNOSIS_REPORT_PATH is required")
	}
	if c.RefreshConcurrency < 1 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be at least 1, got %d", c.RefreshConcurrency)
	}

	// Note: FUND_API_BASE_URL is optional; without it fund refreshes are
	// disabled but locally entered data still works.
	return nil
}

// DataDir returns the directory holding the database and report files.
func (c *Config) DataDir() string {
	return filepath.Dir(c.DatabasePath)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
