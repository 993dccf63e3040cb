package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "sqlite" {
		t.Fatalf("expected sqlite default, got %q", cfg.StorageDriver)
	}
	if cfg.SQLitePath != "cytocore.db" {
		t.Fatalf("unexpected sqlite path default: %q", cfg.SQLitePath)
	}
	if cfg.BlobDriver != "fs" || cfg.BlobRoot != "outputs" {
		t.Fatalf("unexpected blob defaults: %+v", cfg)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CYTOCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("CYTOCORE_POSTGRES_DSN", "postgres://localhost/trial")
	t.Setenv("CYTOCORE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != "postgres" || cfg.PostgresDSN != "postgres://localhost/trial" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected level: %v", cfg.SlogLevel())
	}
}

func TestSlogLevelFallsBackToInfo(t *testing.T) {
	cfg := Config{LogLevel: "chatty"}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", cfg.SlogLevel())
	}
}
