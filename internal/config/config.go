// Package config loads process configuration from CYTOCORE_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable the command-line entry points read.
type Config struct {
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"cytocore.db"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`

	BlobDriver    string `envconfig:"BLOB_DRIVER" default:"fs"`
	BlobRoot      string `envconfig:"BLOB_ROOT" default:"outputs"`
	BlobBucket    string `envconfig:"BLOB_BUCKET"`
	BlobRegion    string `envconfig:"BLOB_REGION"`
	BlobEndpoint  string `envconfig:"BLOB_ENDPOINT"`
	BlobAccessKey string `envconfig:"BLOB_ACCESS_KEY"`
	BlobSecretKey string `envconfig:"BLOB_SECRET_KEY"`

	InputCSV string `envconfig:"INPUT_CSV"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment under the CYTOCORE prefix.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("cytocore", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// SlogLevel translates the configured level name. Unknown names fall back to
// info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
