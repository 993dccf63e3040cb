// Command loadtrial loads a cell-count CSV into the configured trial store.
// The load is a full refresh: the schema is rebuilt, the file is committed in
// one transaction, and the integrity rules run before the process reports
// success.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"cytocore/internal/config"
	"cytocore/internal/core"
)

// candidatePaths are tried in order when no explicit input is given.
var candidatePaths = []string{"cell-count.csv", "data/cell-count.csv"}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "loadtrial: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	input := flag.String("input", "", "path to the cell-count CSV (overrides CYTOCORE_INPUT_CSV)")
	flag.Parse()

	path, err := resolveInput(*input, cfg.InputCSV)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = file.Close() }()

	store, err := core.OpenPersistentStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	metrics := core.NewExpvarMetricsRecorder("loadtrial_metrics")
	service := core.NewService(store, core.WithLogger(logger), core.WithMetricsRecorder(metrics))

	summary, err := service.IngestCSV(ctx, file)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "load complete",
		slog.String("input", path),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Int("rows", summary.Rows),
		slog.Int("subjects", summary.Subjects),
		slog.Int("samples", summary.Samples),
		slog.Int("measurements", summary.Measurements),
	)
	return nil
}

// resolveInput picks the flag value, then the environment, then the first
// existing candidate path.
func resolveInput(flagValue, envValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envValue != "" {
		return envValue, nil
	}
	for _, candidate := range candidatePaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("no input CSV found: pass -input or set CYTOCORE_INPUT_CSV")
}
