package core

import "cytocore/pkg/domain"

type (
	Population         = domain.Population
	Subject            = domain.Subject
	Sample             = domain.Sample
	Measurement        = domain.Measurement
	TrialBatch         = domain.TrialBatch
	FrequencyRecord    = domain.FrequencyRecord
	DifferentialResult = domain.DifferentialResult
	CohortFilter       = domain.CohortFilter
	CohortSample       = domain.CohortSample
	Store              = domain.Store
	StoreView          = domain.StoreView
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Result             = domain.Result
	Violation          = domain.Violation
)

// NewRulesEngine constructs an engine preloaded with every integrity rule the
// service evaluates after a commit.
func NewRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(MeasurementCompletenessRule())
	engine.Register(SampleCardinalityRule())
	engine.Register(PopulationAllowlistRule())
	return engine
}
