package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports required or population columns missing from the input
// header. Raised before any row is processed.
type SchemaError struct {
	Columns []string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("input is missing required columns: %s", strings.Join(e.Columns, ", "))
}

// MalformedFieldError reports a required or optional field that failed to
// parse on a specific data row. Row indexes are 1-based over data rows.
type MalformedFieldError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e MalformedFieldError) Error() string {
	return fmt.Sprintf("row %d: field %s: invalid value %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e MalformedFieldError) Unwrap() error { return e.Err }

// DuplicateSampleError reports a sample id appearing on more than one input row.
type DuplicateSampleError struct {
	SampleID string
	Row      int
}

func (e DuplicateSampleError) Error() string {
	return fmt.Sprintf("row %d: duplicate sample id %s", e.Row, e.SampleID)
}

// InconsistentResponseError reports a subject carrying two distinct non-null
// responses across input rows.
type InconsistentResponseError struct {
	SubjectID string
	Existing  string
	New       string
	Row       int
}

func (e InconsistentResponseError) Error() string {
	return fmt.Sprintf("row %d: inconsistent response for subject %s: %q vs %q", e.Row, e.SubjectID, e.Existing, e.New)
}

// InconsistentSubjectFieldError reports a subject-level field disagreeing
// with the value recorded on the subject's first row.
type InconsistentSubjectFieldError struct {
	SubjectID string
	Field     string
	Old       string
	New       string
	Row       int
}

func (e InconsistentSubjectFieldError) Error() string {
	return fmt.Sprintf("row %d: inconsistent %s for subject %s: %q vs %q", e.Row, e.Field, e.SubjectID, e.Old, e.New)
}

// IntegrityError reports a structural check failing over committed data.
// Reaching one indicates a consolidation bug, not bad input.
type IntegrityError struct {
	Violations []Violation
}

func (e IntegrityError) Error() string {
	if len(e.Violations) == 1 {
		v := e.Violations[0]
		return fmt.Sprintf("integrity check %s failed: %s", v.Rule, v.Message)
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Rule, v.Message)
	}
	return fmt.Sprintf("%d integrity checks failed: %s", len(e.Violations), strings.Join(msgs, "; "))
}

// ZeroTotalError reports a sample whose population counts sum to zero, for
// which relative frequencies are undefined.
type ZeroTotalError struct {
	SampleID string
}

func (e ZeroTotalError) Error() string {
	return fmt.Sprintf("zero total count for sample %s", e.SampleID)
}

// EmptyCohortError reports a cohort selection yielding zero rows.
type EmptyCohortError struct {
	Scope string
}

func (e EmptyCohortError) Error() string {
	return fmt.Sprintf("cohort selection for scope %s matched no samples", e.Scope)
}

// ExcessRepeatedMeasurementError reports a subject contributing more samples
// for one population than the pooled aggregation allows.
type ExcessRepeatedMeasurementError struct {
	SubjectID  string
	Population Population
	Count      int
	Max        int
}

func (e ExcessRepeatedMeasurementError) Error() string {
	return fmt.Sprintf("subject %s has %d measurements for %s, expected at most %d", e.SubjectID, e.Count, e.Population, e.Max)
}

// ConflictingResponseInCohortError reports a subject appearing under two
// response labels within one cohort. Unreachable if ingestion is correct;
// checked again at the analysis boundary.
type ConflictingResponseInCohortError struct {
	SubjectID string
	First     string
	Second    string
}

func (e ConflictingResponseInCohortError) Error() string {
	return fmt.Sprintf("subject %s appears under responses %q and %q in the cohort", e.SubjectID, e.First, e.Second)
}

// EmptyGroupError reports a population with one of the two response groups
// empty, making the two-group test undefined.
type EmptyGroupError struct {
	Population     Population
	NResponders    int
	NNonResponders int
}

func (e EmptyGroupError) Error() string {
	return fmt.Sprintf("population %s has an empty response group (responders=%d, non-responders=%d)", e.Population, e.NResponders, e.NNonResponders)
}
