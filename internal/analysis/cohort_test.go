package analysis

import (
	"errors"
	"math"
	"testing"

	"cytocore/pkg/domain"
)

func frequenciesFixture(samples map[string][5]float64) []domain.FrequencyRecord {
	pops := domain.Populations()
	var out []domain.FrequencyRecord
	for sample, pcts := range samples {
		for i, pop := range pops {
			out = append(out, domain.FrequencyRecord{SampleID: sample, Population: pop, Percentage: pcts[i]})
		}
	}
	return out
}

func TestBuildGroupsPerTimepoint(t *testing.T) {
	rows := []domain.CohortSample{
		{SubjectID: "sbj1", SampleID: "s1", Response: "yes", TimeFromTreatmentStart: 0},
		{SubjectID: "sbj2", SampleID: "s2", Response: "no", TimeFromTreatmentStart: 0},
	}
	freqs := frequenciesFixture(map[string][5]float64{
		"s1": {10, 20, 30, 25, 15},
		"s2": {20, 20, 20, 20, 20},
	})
	groups, err := BuildGroups("timepoint_0", rows, freqs, false)
	if err != nil {
		t.Fatalf("build groups: %v", err)
	}
	bcell := groups[domain.PopulationBCell]
	if len(bcell["yes"]) != 1 || bcell["yes"][0] != 10 {
		t.Fatalf("unexpected responder values: %v", bcell["yes"])
	}
	if len(bcell["no"]) != 1 || bcell["no"][0] != 20 {
		t.Fatalf("unexpected non-responder values: %v", bcell["no"])
	}
}

func TestBuildGroupsPooledAveragesRepeatedMeasures(t *testing.T) {
	// One subject with three timepoints collapses to a single mean value.
	rows := []domain.CohortSample{
		{SubjectID: "sbj1", SampleID: "s1", Response: "yes", TimeFromTreatmentStart: 0},
		{SubjectID: "sbj1", SampleID: "s2", Response: "yes", TimeFromTreatmentStart: 7},
		{SubjectID: "sbj1", SampleID: "s3", Response: "yes", TimeFromTreatmentStart: 14},
		{SubjectID: "sbj2", SampleID: "s4", Response: "no", TimeFromTreatmentStart: 0},
	}
	freqs := frequenciesFixture(map[string][5]float64{
		"s1": {10, 0, 0, 0, 0},
		"s2": {20, 0, 0, 0, 0},
		"s3": {60, 0, 0, 0, 0},
		"s4": {5, 0, 0, 0, 0},
	})
	groups, err := BuildGroups("pooled", rows, freqs, true)
	if err != nil {
		t.Fatalf("build groups: %v", err)
	}
	bcell := groups[domain.PopulationBCell]
	if len(bcell["yes"]) != 1 {
		t.Fatalf("expected one pooled observation for sbj1, got %v", bcell["yes"])
	}
	if math.Abs(bcell["yes"][0]-30) > 1e-12 {
		t.Fatalf("expected mean 30, got %v", bcell["yes"][0])
	}
	if len(bcell["no"]) != 1 || bcell["no"][0] != 5 {
		t.Fatalf("unexpected non-responder values: %v", bcell["no"])
	}
}

func TestBuildGroupsEmptyCohort(t *testing.T) {
	_, err := BuildGroups("timepoint_7", nil, nil, false)
	var emptyErr domain.EmptyCohortError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyCohortError, got %v", err)
	}
	if emptyErr.Scope != "timepoint_7" {
		t.Fatalf("unexpected scope: %s", emptyErr.Scope)
	}
}

func TestBuildGroupsConflictingResponse(t *testing.T) {
	rows := []domain.CohortSample{
		{SubjectID: "sbj1", SampleID: "s1", Response: "yes"},
		{SubjectID: "sbj1", SampleID: "s2", Response: "no"},
	}
	_, err := BuildGroups("pooled", rows, nil, true)
	var conflictErr domain.ConflictingResponseInCohortError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictingResponseInCohortError, got %v", err)
	}
}

func TestBuildGroupsExcessRepeatedMeasurements(t *testing.T) {
	rows := []domain.CohortSample{
		{SubjectID: "sbj1", SampleID: "s1", Response: "yes", TimeFromTreatmentStart: 0},
		{SubjectID: "sbj1", SampleID: "s2", Response: "yes", TimeFromTreatmentStart: 0},
		{SubjectID: "sbj1", SampleID: "s3", Response: "yes", TimeFromTreatmentStart: 7},
		{SubjectID: "sbj1", SampleID: "s4", Response: "yes", TimeFromTreatmentStart: 14},
	}
	freqs := frequenciesFixture(map[string][5]float64{
		"s1": {1, 0, 0, 0, 0}, "s2": {2, 0, 0, 0, 0}, "s3": {3, 0, 0, 0, 0}, "s4": {4, 0, 0, 0, 0},
	})
	_, err := BuildGroups("pooled", rows, freqs, true)
	var excessErr domain.ExcessRepeatedMeasurementError
	if !errors.As(err, &excessErr) {
		t.Fatalf("expected ExcessRepeatedMeasurementError, got %v", err)
	}
	if excessErr.SubjectID != "sbj1" || excessErr.Max != 3 {
		t.Fatalf("unexpected error detail: %+v", excessErr)
	}
}

func TestBuildGroupsMissingFrequencyRecord(t *testing.T) {
	rows := []domain.CohortSample{
		{SubjectID: "sbj1", SampleID: "s1", Response: "yes", TimeFromTreatmentStart: 0},
	}

	// sample entirely absent from the frequency table
	_, err := BuildGroups("timepoint_0", rows, nil, false)
	var integrityErr domain.IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected IntegrityError for absent sample, got %v", err)
	}
	if len(integrityErr.Violations) != 1 || integrityErr.Violations[0].EntityID != "s1" {
		t.Fatalf("unexpected violations: %+v", integrityErr.Violations)
	}

	// sample present but missing one population record
	freqs := frequenciesFixture(map[string][5]float64{"s1": {10, 20, 30, 25, 15}})
	partial := freqs[:len(freqs)-1]
	if _, err := BuildGroups("pooled", rows, partial, true); !errors.As(err, &integrityErr) {
		t.Fatalf("expected IntegrityError for partial record, got %v", err)
	}
}

func TestDefaultCohortFilter(t *testing.T) {
	f := DefaultCohortFilter()
	if f.Condition != "melanoma" || f.Treatment != "miraclib" || f.SampleType != "PBMC" {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if len(f.Responses) != 2 {
		t.Fatalf("expected yes/no responses, got %v", f.Responses)
	}
}
