// Package core wires ingestion, storage, integrity rules, and analysis into
// the trial service used by the command-line entry points.
package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cytocore/internal/analysis"
	"cytocore/internal/ingest"
	"cytocore/pkg/domain"
)

// Service exposes the trial operations: load a CSV into the store, validate
// the committed state, and derive frequencies and differential results.
type Service struct {
	store   domain.Store
	rules   *domain.RulesEngine
	filter  domain.CohortFilter
	logger  *slog.Logger
	metrics MetricsRecorder
}

// Option customises service construction.
type Option func(*Service)

// WithLogger injects a structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder injects a metrics sink for operation outcomes.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithCohortFilter overrides the default analysis cohort.
func WithCohortFilter(filter domain.CohortFilter) Option {
	return func(s *Service) { s.filter = filter }
}

// NewService constructs a service over the given store with the full
// integrity rule set registered.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		rules:  NewRulesEngine(),
		filter: analysis.DefaultCohortFilter(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store view, primarily for tests and exporters.
func (s *Service) Store() domain.StoreView { return s.store }

// observe wraps an operation with timing and outcome recording.
func (s *Service) observe(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}

// IngestSummary reports what a successful load committed.
type IngestSummary struct {
	Rows         int `json:"rows"`
	Subjects     int `json:"subjects"`
	Samples      int `json:"samples"`
	Measurements int `json:"measurements"`
}

// IngestCSV parses, consolidates, and commits one input file. The store is
// rebuilt first so a load is always a full refresh; the commit is atomic and
// followed by the post-commit integrity evaluation. Any failure leaves
// nothing partially loaded.
func (s *Service) IngestCSV(ctx context.Context, r io.Reader) (IngestSummary, error) {
	var summary IngestSummary
	err := s.observe(ctx, "ingest_csv", func() error {
		rows, err := ingest.ReadRows(r)
		if err != nil {
			return err
		}
		batch, err := ingest.Consolidate(rows)
		if err != nil {
			return err
		}
		if err := s.store.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild schema: %w", err)
		}
		if err := s.store.CommitBatch(ctx, batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := s.ValidateIntegrity(ctx); err != nil {
			return err
		}
		summary = IngestSummary{
			Rows:         len(rows),
			Subjects:     len(batch.Subjects),
			Samples:      len(batch.Samples),
			Measurements: len(batch.Measurements),
		}
		return nil
	})
	if err != nil {
		return IngestSummary{}, err
	}
	s.logger.InfoContext(ctx, "csv ingested",
		slog.Int("rows", summary.Rows),
		slog.Int("subjects", summary.Subjects),
		slog.Int("samples", summary.Samples),
		slog.Int("measurements", summary.Measurements),
	)
	return summary, nil
}

// ValidateIntegrity evaluates every registered rule over the committed store
// and returns an IntegrityError carrying all violations, or nil when clean.
func (s *Service) ValidateIntegrity(ctx context.Context) error {
	return s.observe(ctx, "validate_integrity", func() error {
		result, err := s.rules.Evaluate(ctx, s.store)
		if err != nil {
			return fmt.Errorf("evaluate integrity rules: %w", err)
		}
		return result.Err()
	})
}

// Frequencies recomputes the per-(sample, population) relative frequencies
// from the committed measurements.
func (s *Service) Frequencies(ctx context.Context) ([]domain.FrequencyRecord, error) {
	var records []domain.FrequencyRecord
	err := s.observe(ctx, "compute_frequencies", func() error {
		measurements, err := s.store.Measurements(ctx)
		if err != nil {
			return fmt.Errorf("load measurements: %w", err)
		}
		samples, err := s.store.CountSamples(ctx)
		if err != nil {
			return fmt.Errorf("count samples: %w", err)
		}
		records, err = analysis.ComputeFrequencies(measurements, samples)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RunDifferential executes one responder-vs-non-responder scope.
func (s *Service) RunDifferential(ctx context.Context, scope analysis.Scope) (analysis.ScopeResult, error) {
	var result analysis.ScopeResult
	err := s.observe(ctx, "run_differential", func() error {
		engine := analysis.NewEngine(s.store, s.filter, s.logger)
		var err error
		result, err = engine.RunScope(ctx, scope)
		return err
	})
	if err != nil {
		return analysis.ScopeResult{}, err
	}
	return result, nil
}
