package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"cytocore/pkg/domain"
)

// Scope is one differential comparison: either pooled across all valid
// timepoints (Timepoint nil) or restricted to a single timepoint.
type Scope struct {
	Label     string
	Timepoint *int
}

// Scopes enumerates every comparison the pipeline runs: the pooled
// repeated-measures comparison plus one independent scope per timepoint.
func Scopes() []Scope {
	scopes := []Scope{{Label: "pooled"}}
	for _, tp := range ValidTimepoints {
		t := tp
		scopes = append(scopes, Scope{Label: fmt.Sprintf("timepoint_%d", t), Timepoint: &t})
	}
	return scopes
}

// ScopeResult carries one scope's per-population test outcomes alongside the
// group observations that produced them (the plot exporter reuses these).
type ScopeResult struct {
	Scope   Scope
	Results []domain.DifferentialResult
	Groups  Groups
}

// Engine runs responder-vs-non-responder comparisons against a committed
// store. Frequencies are recomputed per run; nothing derived is persisted.
type Engine struct {
	store  domain.StoreView
	filter domain.CohortFilter
	logger *slog.Logger
}

// NewEngine constructs an engine over the given store view. A nil logger
// falls back to slog.Default.
func NewEngine(store domain.StoreView, filter domain.CohortFilter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, filter: filter, logger: logger}
}

// RunScope executes one comparison scope end to end: select the cohort,
// derive frequencies, aggregate groups, test each population, and adjust the
// family of p-values. Errors are fatal to this scope only; other scopes run
// independently.
func (e *Engine) RunScope(ctx context.Context, scope Scope) (ScopeResult, error) {
	filter := e.filter
	pooled := scope.Timepoint == nil
	if pooled {
		filter.Timepoints = append([]int(nil), ValidTimepoints...)
	} else {
		filter.Timepoints = []int{*scope.Timepoint}
	}

	rows, err := e.store.CohortSamples(ctx, filter)
	if err != nil {
		return ScopeResult{}, fmt.Errorf("select cohort for scope %s: %w", scope.Label, err)
	}

	measurements, err := e.store.Measurements(ctx)
	if err != nil {
		return ScopeResult{}, fmt.Errorf("load measurements: %w", err)
	}
	sampleCount, err := e.store.CountSamples(ctx)
	if err != nil {
		return ScopeResult{}, fmt.Errorf("count samples: %w", err)
	}
	frequencies, err := ComputeFrequencies(measurements, sampleCount)
	if err != nil {
		return ScopeResult{}, err
	}

	groups, err := BuildGroups(scope.Label, rows, frequencies, pooled)
	if err != nil {
		return ScopeResult{}, err
	}

	populations := domain.Populations()
	results := make([]domain.DifferentialResult, 0, len(populations))
	pvalues := make([]float64, 0, len(populations))
	for _, pop := range populations {
		responders := groups[pop][domain.ResponseYes]
		nonResponders := groups[pop][domain.ResponseNo]
		if len(responders) == 0 || len(nonResponders) == 0 {
			return ScopeResult{}, domain.EmptyGroupError{
				Population:     pop,
				NResponders:    len(responders),
				NNonResponders: len(nonResponders),
			}
		}
		_, p := MannWhitneyU(responders, nonResponders)
		results = append(results, domain.DifferentialResult{
			Population:     pop,
			NResponders:    len(responders),
			NNonResponders: len(nonResponders),
			PValue:         p,
		})
		pvalues = append(pvalues, p)
	}

	qvalues := BenjaminiHochberg(pvalues)
	for i := range results {
		results[i].QValue = qvalues[i]
	}

	e.logger.InfoContext(ctx, "differential scope complete",
		slog.String("scope", scope.Label),
		slog.Int("cohort_samples", len(rows)),
		slog.Int("populations", len(results)),
	)
	return ScopeResult{Scope: scope, Results: results, Groups: groups}, nil
}
