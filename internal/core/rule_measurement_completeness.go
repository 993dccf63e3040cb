package core

import (
	"context"
	"fmt"

	"cytocore/pkg/domain"
)

// MeasurementCompletenessRule enforces that the store holds exactly one
// measurement per (sample, population) pair: total measurements must equal
// sample count times the population allowlist size.
func MeasurementCompletenessRule() domain.Rule {
	return measurementCompletenessRule{}
}

type measurementCompletenessRule struct{}

func (measurementCompletenessRule) Name() string { return "measurement_completeness" }

func (measurementCompletenessRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	samples, err := view.CountSamples(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("count samples: %w", err)
	}
	measurements, err := view.CountMeasurements(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("count measurements: %w", err)
	}
	expected := samples * len(domain.Populations())
	if measurements != expected {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:    "measurement_completeness",
			Message: fmt.Sprintf("store holds %d measurements for %d samples, expected %d", measurements, samples, expected),
		})
	}
	return res, nil
}
