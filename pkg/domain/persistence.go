package domain

import "context"

// StoreView is the read side of a trial store: everything the integrity
// rules and the analysis pipeline consume.
type StoreView interface {
	RuleView
	CountSubjects(ctx context.Context) (int, error)
	Subjects(ctx context.Context) ([]Subject, error)
	Samples(ctx context.Context) ([]Sample, error)
	// Measurements returns every measurement ordered by sample id, then
	// population, so derived outputs are deterministic across runs.
	Measurements(ctx context.Context) ([]Measurement, error)
	// CohortSamples returns the samples matching the filter joined with
	// subject response labels.
	CohortSamples(ctx context.Context, filter CohortFilter) ([]CohortSample, error)
}

// Store is the persistent trial store contract. Rebuild drops and recreates
// the schema; CommitBatch writes a consolidated batch in one transaction.
type Store interface {
	StoreView
	Rebuild(ctx context.Context) error
	CommitBatch(ctx context.Context, batch TrialBatch) error
	Close() error
}
