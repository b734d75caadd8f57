package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath   string  // portfolio.db: orders, instruments, fx_rates, dividends, snapshots
	HistoryDir     string  // per-symbol price history databases
	BaseCurrency   string  // currency all valuations are normalized to
	RiskFreeRate   float64 // annual, as decimal
	LogLevel       string
	Port           int
	DevMode        bool
	SnapshotCron   string // cron spec for the nightly valuation snapshot
	MaxSimPaths    int    // hard cap on Monte Carlo paths per request
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8010),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/portfolio.db"),
		HistoryDir:     getEnv("HISTORY_DIR", "./data/history"),
		BaseCurrency:   getEnv("BASE_CURRENCY", "AUD"),
		RiskFreeRate:   getEnvAsFloat("RISK_FREE_RATE", 0.02),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SnapshotCron:   getEnv("SNAPSHOT_CRON", "0 0 22 * * *"),
		MaxSimPaths:    getEnvAsInt("MAX_SIM_PATHS", 50000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("BASE_CURRENCY must be a 3-letter ISO code, got %q", c.BaseCurrency)
	}
	if c.MaxSimPaths <= 0 {
		return fmt.Errorf("MAX_SIM_PATHS must be positive")
	}
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
