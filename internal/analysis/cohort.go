package analysis

import (
	"fmt"
	"sort"

	"cytocore/pkg/domain"
)

// ValidTimepoints are the time offsets at which trial samples were drawn.
var ValidTimepoints = []int{0, 7, 14}

// maxTimepointsPerSubject bounds how many samples one subject may contribute
// per population when pooling across time.
const maxTimepointsPerSubject = 3

// DefaultCohortFilter selects the analysis cohort the differential pipeline
// compares: treated melanoma PBMC samples from subjects with a recorded
// yes/no response.
func DefaultCohortFilter() domain.CohortFilter {
	return domain.CohortFilter{
		Condition:  "melanoma",
		Treatment:  "miraclib",
		SampleType: "PBMC",
		Responses:  []string{domain.ResponseYes, domain.ResponseNo},
	}
}

// Groups maps population → response label → percentage observations. In
// per-timepoint mode each observation is one sample; in pooled mode each is
// one subject's mean across timepoints.
type Groups map[domain.Population]map[string][]float64

// BuildGroups turns selected cohort rows plus the derived frequency records
// into test-ready groups. pooled selects the repeated-measures aggregation:
// a subject contributing several timepoints collapses to one arithmetic-mean
// observation per population, so repeated measurements of the same subject
// are never treated as independent data points.
func BuildGroups(scope string, rows []domain.CohortSample, frequencies []domain.FrequencyRecord, pooled bool) (Groups, error) {
	if len(rows) == 0 {
		return nil, domain.EmptyCohortError{Scope: scope}
	}

	responseBySubject := make(map[string]string)
	for _, row := range rows {
		if prev, ok := responseBySubject[row.SubjectID]; ok && prev != row.Response {
			return nil, domain.ConflictingResponseInCohortError{SubjectID: row.SubjectID, First: prev, Second: row.Response}
		}
		responseBySubject[row.SubjectID] = row.Response
	}

	pctBySample := make(map[string]map[domain.Population]float64)
	for _, rec := range frequencies {
		byPop, ok := pctBySample[rec.SampleID]
		if !ok {
			byPop = make(map[domain.Population]float64, len(domain.Populations()))
			pctBySample[rec.SampleID] = byPop
		}
		byPop[rec.Population] = rec.Percentage
	}

	groups := make(Groups, len(domain.Populations()))
	for _, pop := range domain.Populations() {
		groups[pop] = map[string][]float64{}
	}

	if !pooled {
		for _, row := range rows {
			for _, pop := range domain.Populations() {
				pct, err := percentageFor(pctBySample, row.SampleID, pop)
				if err != nil {
					return nil, err
				}
				groups[pop][row.Response] = append(groups[pop][row.Response], pct)
			}
		}
		return groups, nil
	}

	// Pooled mode: collapse to one value per (subject, population) first.
	type subjectPop struct {
		subject    string
		population domain.Population
	}
	values := make(map[subjectPop][]float64)
	for _, row := range rows {
		for _, pop := range domain.Populations() {
			pct, err := percentageFor(pctBySample, row.SampleID, pop)
			if err != nil {
				return nil, err
			}
			key := subjectPop{row.SubjectID, pop}
			values[key] = append(values[key], pct)
			if len(values[key]) > maxTimepointsPerSubject {
				return nil, domain.ExcessRepeatedMeasurementError{
					SubjectID:  row.SubjectID,
					Population: pop,
					Count:      len(values[key]),
					Max:        maxTimepointsPerSubject,
				}
			}
		}
	}

	// Deterministic group order: subjects sorted by id.
	subjects := make([]string, 0, len(responseBySubject))
	for id := range responseBySubject {
		subjects = append(subjects, id)
	}
	sort.Strings(subjects)

	for _, id := range subjects {
		response := responseBySubject[id]
		for _, pop := range domain.Populations() {
			obs := values[subjectPop{id, pop}]
			if len(obs) == 0 {
				continue
			}
			sum := 0.0
			for _, v := range obs {
				sum += v
			}
			groups[pop][response] = append(groups[pop][response], sum/float64(len(obs)))
		}
	}
	return groups, nil
}

// percentageFor rejects cohort samples that lack a frequency record for pop.
// A selected sample without a derived percentage means the frequency table
// and the store disagree, which must surface rather than read as 0.0.
func percentageFor(pcts map[string]map[domain.Population]float64, sampleID string, pop domain.Population) (float64, error) {
	pct, ok := pcts[sampleID][pop]
	if !ok {
		return 0, domain.IntegrityError{Violations: []domain.Violation{{
			Rule:     "cohort_frequency_coverage",
			Message:  fmt.Sprintf("sample %s has no %s frequency record", sampleID, pop),
			EntityID: sampleID,
		}}}
	}
	return pct, nil
}
