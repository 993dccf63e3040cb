// Package memory provides an in-memory trial store for tests and ephemeral
// runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"cytocore/pkg/domain"
)

// Store keeps the committed batch in process memory. Reads return copies so
// callers cannot mutate committed state.
type Store struct {
	mu           sync.RWMutex
	subjects     []domain.Subject
	samples      []domain.Sample
	measurements []domain.Measurement
}

var _ domain.Store = (*Store)(nil)

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Rebuild drops all committed state.
func (s *Store) Rebuild(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = nil
	s.samples = nil
	s.measurements = nil
	return nil
}

// CommitBatch replaces nothing and appends nothing partially: the batch lands
// as a whole under the write lock.
func (s *Store) CommitBatch(_ context.Context, batch domain.TrialBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, batch.Subjects...)
	s.samples = append(s.samples, batch.Samples...)
	s.measurements = append(s.measurements, batch.Measurements...)
	return nil
}

// Close releases nothing; it exists to satisfy the store contract.
func (s *Store) Close() error { return nil }

func (s *Store) CountSubjects(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects), nil
}

func (s *Store) CountSamples(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples), nil
}

func (s *Store) CountMeasurements(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.measurements), nil
}

func (s *Store) MeasurementCountsBySample(context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int, len(s.samples))
	for _, m := range s.measurements {
		counts[m.SampleID]++
	}
	return counts, nil
}

func (s *Store) DistinctPopulations(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, m := range s.measurements {
		seen[string(m.Population)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for pop := range seen {
		out = append(out, pop)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Subjects(context.Context) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out, nil
}

func (s *Store) Samples(context.Context) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// Measurements returns measurements ordered by sample id then population so
// derived outputs are stable regardless of commit order.
func (s *Store) Measurements(context.Context) ([]domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Measurement, len(s.measurements))
	copy(out, s.measurements)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SampleID != out[j].SampleID {
			return out[i].SampleID < out[j].SampleID
		}
		return out[i].Population < out[j].Population
	})
	return out, nil
}

func (s *Store) CohortSamples(_ context.Context, filter domain.CohortFilter) ([]domain.CohortSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjectByID := make(map[string]domain.Subject, len(s.subjects))
	for _, sub := range s.subjects {
		subjectByID[sub.SubjectID] = sub
	}

	responses := make(map[string]struct{}, len(filter.Responses))
	for _, r := range filter.Responses {
		responses[r] = struct{}{}
	}
	timepoints := make(map[int]struct{}, len(filter.Timepoints))
	for _, tp := range filter.Timepoints {
		timepoints[tp] = struct{}{}
	}

	var out []domain.CohortSample
	for _, sample := range s.samples {
		sub, ok := subjectByID[sample.SubjectID]
		if !ok {
			continue
		}
		if filter.Condition != "" && sub.Condition != filter.Condition {
			continue
		}
		if filter.Treatment != "" && sub.Treatment != filter.Treatment {
			continue
		}
		if filter.SampleType != "" && sample.SampleType != filter.SampleType {
			continue
		}
		if len(responses) > 0 {
			if sub.Response == nil {
				continue
			}
			if _, ok := responses[*sub.Response]; !ok {
				continue
			}
		}
		if len(timepoints) > 0 {
			if _, ok := timepoints[sample.TimeFromTreatmentStart]; !ok {
				continue
			}
		}
		response := ""
		if sub.Response != nil {
			response = *sub.Response
		}
		out = append(out, domain.CohortSample{
			SubjectID:              sample.SubjectID,
			SampleID:               sample.SampleID,
			Response:               response,
			TimeFromTreatmentStart: sample.TimeFromTreatmentStart,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SampleID < out[j].SampleID })
	return out, nil
}
