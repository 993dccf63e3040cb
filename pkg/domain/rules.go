package domain

import "context"

// RuleView provides read-only access to committed trial data for integrity
// evaluation. Implemented by every store.
type RuleView interface {
	CountSamples(ctx context.Context) (int, error)
	CountMeasurements(ctx context.Context) (int, error)
	MeasurementCountsBySample(ctx context.Context) (map[string]int, error)
	DistinctPopulations(ctx context.Context) ([]string, error)
}

// Rule is one structural check evaluated over the committed store.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Message  string
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Err returns an IntegrityError carrying the violations, or nil when clean.
func (r Result) Err() error {
	if len(r.Violations) == 0 {
		return nil
	}
	return IntegrityError{Violations: r.Violations}
}

// RulesEngine evaluates every registered rule. All rules always run; results
// are merged so one clean check cannot mask another's violation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
