package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken        string
	CollectConcurrency int

	// Discord
	DiscordBotToken     string
	DiscordReadyTimeout time.Duration

	// Storage
	StorageType string // "sqlite", "postgres" or "memory"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Pipeline
	PipelineTimeout  time.Duration
	RunOverlapWindow time.Duration

	LogLevel string
}

var defaults = map[string]any{
	"STORAGE_TYPE":          "sqlite",
	"SQLITE_PATH":           "./disgitbot.db",
	"API_PORT":              "8080",
	"API_HOST":              "localhost",
	"API_ENDPOINT":          "http://localhost:8080",
	"LOG_LEVEL":             "info",
	"COLLECT_CONCURRENCY":   4,
	"PIPELINE_TIMEOUT":      "2h",
	"DISCORD_READY_TIMEOUT": "30s",
	"RUN_OVERLAP_WINDOW":    "6h",
}

// Load loads the configuration from environment variables. path names an
// optional .env file; an empty path loads ./.env if it exists.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, &ConfigError{Field: "config", Message: err.Error()}
		}
	} else {
		// Load .env file if it exists (ignore error if not found)
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return &Config{
		GitHubToken:         v.GetString("GITHUB_TOKEN"),
		CollectConcurrency:  v.GetInt("COLLECT_CONCURRENCY"),
		DiscordBotToken:     v.GetString("DISCORD_BOT_TOKEN"),
		DiscordReadyTimeout: v.GetDuration("DISCORD_READY_TIMEOUT"),
		StorageType:         v.GetString("STORAGE_TYPE"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		PostgresURL:         v.GetString("POSTGRES_URL"),
		APIPort:             v.GetString("API_PORT"),
		APIHost:             v.GetString("API_HOST"),
		APIEndpoint:         v.GetString("API_ENDPOINT"),
		PipelineTimeout:     v.GetDuration("PIPELINE_TIMEOUT"),
		RunOverlapWindow:    v.GetDuration("RUN_OVERLAP_WINDOW"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}, nil
}

// Validate validates the storage configuration
func (c *Config) Validate() error {
	switch c.StorageType {
	case "sqlite", "postgres", "memory":
	default:
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite', 'postgres' or 'memory'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.CollectConcurrency < 1 {
		return &ConfigError{Field: "COLLECT_CONCURRENCY", Message: "must be at least 1"}
	}
	return nil
}

// ValidatePipeline validates everything a full pipeline run needs
func (c *Config) ValidatePipeline() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.DiscordBotToken == "" {
		return &ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "Discord bot token is required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
