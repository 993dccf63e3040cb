package core

import (
	"context"
	"fmt"
	"sort"

	"cytocore/pkg/domain"
)

// SampleCardinalityRule enforces that every committed sample carries exactly
// one measurement per allowlisted population.
func SampleCardinalityRule() domain.Rule {
	return sampleCardinalityRule{}
}

type sampleCardinalityRule struct{}

func (sampleCardinalityRule) Name() string { return "sample_cardinality" }

func (sampleCardinalityRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	counts, err := view.MeasurementCountsBySample(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("measurement counts by sample: %w", err)
	}

	expected := len(domain.Populations())
	offenders := make([]string, 0)
	for sample, n := range counts {
		if n != expected {
			offenders = append(offenders, sample)
		}
	}
	sort.Strings(offenders)
	for _, sample := range offenders {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "sample_cardinality",
			Message:  fmt.Sprintf("sample %s has %d measurements, expected %d", sample, counts[sample], expected),
			EntityID: sample,
		})
	}
	return res, nil
}
