package memory

import (
	"context"
	"testing"

	"cytocore/pkg/domain"
)

func strPtr(s string) *string { return &s }

func fixtureBatch() domain.TrialBatch {
	var batch domain.TrialBatch
	batch.Subjects = []domain.Subject{
		{SubjectID: "sbj1", Project: "prj1", Condition: "melanoma", Treatment: "miraclib", Response: strPtr("yes")},
		{SubjectID: "sbj2", Project: "prj1", Condition: "melanoma", Treatment: "miraclib", Response: strPtr("no")},
	}
	batch.Samples = []domain.Sample{
		{SampleID: "s2", SubjectID: "sbj2", SampleType: "PBMC", TimeFromTreatmentStart: 0},
		{SampleID: "s1", SubjectID: "sbj1", SampleType: "PBMC", TimeFromTreatmentStart: 0},
	}
	for _, sample := range batch.Samples {
		for i, pop := range domain.Populations() {
			batch.Measurements = append(batch.Measurements, domain.Measurement{
				SampleID: sample.SampleID, Population: pop, Count: i + 1,
			})
		}
	}
	return batch
}

func TestCommitAndCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CommitBatch(ctx, fixtureBatch()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := store.CountSubjects(ctx); n != 2 {
		t.Fatalf("subjects = %d", n)
	}
	if n, _ := store.CountSamples(ctx); n != 2 {
		t.Fatalf("samples = %d", n)
	}
	if n, _ := store.CountMeasurements(ctx); n != 10 {
		t.Fatalf("measurements = %d", n)
	}
}

func TestMeasurementsSortedRegardlessOfCommitOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CommitBatch(ctx, fixtureBatch()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	ms, err := store.Measurements(ctx)
	if err != nil {
		t.Fatalf("measurements: %v", err)
	}
	// fixture commits s2 before s1; reads must still come back ordered
	if ms[0].SampleID != "s1" {
		t.Fatalf("expected s1 first, got %s", ms[0].SampleID)
	}
	for i := 1; i < len(ms); i++ {
		prev, cur := ms[i-1], ms[i]
		if prev.SampleID > cur.SampleID || (prev.SampleID == cur.SampleID && prev.Population >= cur.Population) {
			t.Fatalf("not ordered at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestCohortSamplesFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CommitBatch(ctx, fixtureBatch()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	rows, err := store.CohortSamples(ctx, domain.CohortFilter{
		Condition: "melanoma", Treatment: "miraclib", SampleType: "PBMC",
		Responses: []string{"yes"},
	})
	if err != nil {
		t.Fatalf("cohort samples: %v", err)
	}
	if len(rows) != 1 || rows[0].SubjectID != "sbj1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRebuildClearsState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CommitBatch(ctx, fixtureBatch()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := store.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n, _ := store.CountSamples(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d samples", n)
	}
}

func TestSubjectsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CommitBatch(ctx, fixtureBatch()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	subjects, _ := store.Subjects(ctx)
	subjects[0].SubjectID = "mutated"
	again, _ := store.Subjects(ctx)
	if again[0].SubjectID == "mutated" {
		t.Fatalf("store state aliased caller slice")
	}
}
