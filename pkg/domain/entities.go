// Package domain defines the persistent trial entities, derived analysis
// records, and rule evaluation primitives used by cytocore.
package domain

// Population identifies one immune cell population quantified per sample.
type Population string

// Canonical populations for this dataset. The allowlist is closed: ingestion
// requires exactly one count column per population and the integrity rules
// reject any measurement outside this set.
const (
	PopulationBCell    Population = "b_cell"
	PopulationCD8TCell Population = "cd8_t_cell"
	PopulationCD4TCell Population = "cd4_t_cell"
	PopulationNKCell   Population = "nk_cell"
	PopulationMonocyte Population = "monocyte"
)

// Populations returns the fixed allowlist in canonical column order.
func Populations() []Population {
	return []Population{
		PopulationBCell,
		PopulationCD8TCell,
		PopulationCD4TCell,
		PopulationNKCell,
		PopulationMonocyte,
	}
}

// Response labels recognised by the cohort selector. Subjects may carry any
// free-text response (or none); only these two participate in the
// responder-vs-non-responder comparison.
const (
	ResponseYes = "yes"
	ResponseNo  = "no"
)

// Subject is a trial participant. One row per distinct subject id; the
// response may be backfilled from a later input row (see ingest).
type Subject struct {
	SubjectID string  `json:"subject_id"`
	Project   string  `json:"project"`
	Condition string  `json:"condition"`
	Age       *int    `json:"age,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	Treatment string  `json:"treatment"`
	Response  *string `json:"response,omitempty"`
}

// Sample is a single specimen drawn from a subject at a time offset from
// treatment start. One sample per input row; immutable once created.
type Sample struct {
	SampleID               string `json:"sample_id"`
	SubjectID              string `json:"subject_id"`
	SampleType             string `json:"sample_type"`
	TimeFromTreatmentStart int    `json:"time_from_treatment_start"`
}

// Measurement is the count of cells of one population observed in one
// sample. Exactly one measurement exists per (sample, population) pair.
type Measurement struct {
	SampleID   string     `json:"sample_id"`
	Population Population `json:"population"`
	Count      int        `json:"count"`
}

// TrialBatch is the atomic unit produced by consolidation and committed by a
// store in a single transaction: either every row lands or none do.
type TrialBatch struct {
	Subjects     []Subject     `json:"subjects"`
	Samples      []Sample      `json:"samples"`
	Measurements []Measurement `json:"measurements"`
}

// FrequencyRecord is the derived per-(sample, population) relative frequency.
// Recomputed from measurements on every analysis run; never persisted.
type FrequencyRecord struct {
	SampleID   string     `json:"sample"`
	TotalCount int        `json:"total_count"`
	Population Population `json:"population"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// DifferentialResult is one population's responder-vs-non-responder test
// outcome within a single analysis scope.
type DifferentialResult struct {
	Population     Population `json:"population"`
	NResponders    int        `json:"n_responders"`
	NNonResponders int        `json:"n_nonresponders"`
	PValue         float64    `json:"p_value"`
	QValue         float64    `json:"q_value"`
}

// CohortFilter selects the analysis cohort. Empty Timepoints means any
// timepoint; a single element restricts the scope to that timepoint.
type CohortFilter struct {
	Condition  string
	Treatment  string
	SampleType string
	Responses  []string
	Timepoints []int
}

// CohortSample is one selected sample joined with the subject attributes the
// aggregation step needs.
type CohortSample struct {
	SubjectID              string
	SampleID               string
	Response               string
	TimeFromTreatmentStart int
}
