package core

import (
	"context"
	"fmt"

	"cytocore/pkg/domain"
)

// PopulationAllowlistRule enforces that no measurement references a
// population outside the canonical allowlist.
func PopulationAllowlistRule() domain.Rule {
	return populationAllowlistRule{}
}

type populationAllowlistRule struct{}

func (populationAllowlistRule) Name() string { return "population_allowlist" }

func (populationAllowlistRule) Evaluate(ctx context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	distinct, err := view.DistinctPopulations(ctx)
	if err != nil {
		return domain.Result{}, fmt.Errorf("distinct populations: %w", err)
	}

	allowed := make(map[string]struct{}, len(domain.Populations()))
	for _, pop := range domain.Populations() {
		allowed[string(pop)] = struct{}{}
	}
	for _, pop := range distinct {
		if _, ok := allowed[pop]; !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "population_allowlist",
				Message:  fmt.Sprintf("measurement references unknown population %q", pop),
				EntityID: pop,
			})
		}
	}
	return res, nil
}
