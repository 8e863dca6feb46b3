package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken string

	// Output
	DataDir    string
	SQLitePath string

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken: getEnv("GITHUB_TOKEN", ""),
		DataDir:     getEnv("HARVEST_DATA_DIR", "./data"),
		SQLitePath:  getEnv("HARVEST_DB_PATH", "./harvest.db"),
		LogLevel:    getEnv("HARVEST_LOG_LEVEL", "info"),
		LogPretty:   getEnvBool("HARVEST_LOG_PRETTY", true),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate validates the configuration. A missing token is fatal at
// startup, never retried.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return apperrors.NewConfigError("GITHUB_TOKEN is required (set it in the environment or a .env file)")
	}
	if c.DataDir == "" {
		return apperrors.NewConfigError("HARVEST_DATA_DIR must not be empty")
	}
	return nil
}
