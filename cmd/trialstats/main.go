// Command trialstats derives the analysis artifacts from a loaded trial
// store: the per-sample frequency table, one differential comparison per
// scope, and the per-population box plots. Scopes run independently; a
// failure in one does not stop the others, but any failure makes the process
// exit non-zero.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cytocore/internal/adapters/reports"
	"cytocore/internal/analysis"
	"cytocore/internal/blob"
	"cytocore/internal/config"
	"cytocore/internal/core"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "trialstats: %v\n", err)
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

	store, err := core.OpenPersistentStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	sink, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	metrics := core.NewExpvarMetricsRecorder("trialstats_metrics")
	service := core.NewService(store, core.WithLogger(logger), core.WithMetricsRecorder(metrics))
	exporter := reports.NewExporter(sink, logger)

	frequencies, err := service.Frequencies(ctx)
	if err != nil {
		return err
	}
	if _, err := exporter.PublishFrequencies(ctx, frequencies); err != nil {
		return err
	}

	failed := 0
	for _, scope := range analysis.Scopes() {
		result, err := service.RunDifferential(ctx, scope)
		if err != nil {
			logger.ErrorContext(ctx, "scope failed", slog.String("scope", scope.Label), slog.Any("error", err))
			failed++
			continue
		}
		if _, err := exporter.PublishDifferential(ctx, result); err != nil {
			logger.ErrorContext(ctx, "publish failed", slog.String("scope", scope.Label), slog.Any("error", err))
			failed++
			continue
		}
		if _, err := exporter.PublishBoxPlots(ctx, result); err != nil {
			logger.ErrorContext(ctx, "plot publish failed", slog.String("scope", scope.Label), slog.Any("error", err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d analysis scope(s) failed", failed)
	}
	return nil
}
