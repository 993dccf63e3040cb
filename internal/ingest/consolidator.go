package ingest

import (
	"cytocore/pkg/domain"
)

// subjectAccumulator gathers everything known about one subject across its
// rows. The response slot holds the canonical non-null response once any row
// supplies one; null rows never touch it.
type subjectAccumulator struct {
	firstRow  int
	project   string
	condition string
	treatment string
	ageText   string
	sexText   string
	age       *int
	sex       *string
	response  *string
}

// Consolidate folds parsed rows into a TrialBatch using a two-phase reduce:
// the first pass builds per-subject accumulators and the ordered
// sample/measurement collections while failing fast on any cross-row
// inconsistency; the second pass emits final Subject records in first-seen
// order. Nothing is committed here — the caller writes the whole batch
// atomically or not at all.
func Consolidate(rows []Row) (domain.TrialBatch, error) {
	var batch domain.TrialBatch

	seenSamples := make(map[string]struct{}, len(rows))
	accumulators := make(map[string]*subjectAccumulator)
	var subjectOrder []string

	for _, row := range rows {
		if _, dup := seenSamples[row.SampleID]; dup {
			return domain.TrialBatch{}, domain.DuplicateSampleError{SampleID: row.SampleID, Row: row.Index}
		}
		seenSamples[row.SampleID] = struct{}{}

		acc, ok := accumulators[row.SubjectID]
		if !ok {
			acc = &subjectAccumulator{
				firstRow:  row.Index,
				project:   row.Project,
				condition: row.Condition,
				treatment: row.Treatment,
				ageText:   row.AgeText,
				sexText:   row.SexText,
				age:       row.Age,
				sex:       row.Sex,
			}
			accumulators[row.SubjectID] = acc
			subjectOrder = append(subjectOrder, row.SubjectID)
		} else if err := checkSubjectFields(acc, row); err != nil {
			return domain.TrialBatch{}, err
		}

		if row.Response != nil {
			switch {
			case acc.response == nil:
				acc.response = row.Response
			case *acc.response != *row.Response:
				return domain.TrialBatch{}, domain.InconsistentResponseError{
					SubjectID: row.SubjectID,
					Existing:  *acc.response,
					New:       *row.Response,
					Row:       row.Index,
				}
			}
		}

		batch.Samples = append(batch.Samples, domain.Sample{
			SampleID:               row.SampleID,
			SubjectID:              row.SubjectID,
			SampleType:             row.SampleType,
			TimeFromTreatmentStart: row.TimeFromTreatmentStart,
		})
		for _, pop := range domain.Populations() {
			batch.Measurements = append(batch.Measurements, domain.Measurement{
				SampleID:   row.SampleID,
				Population: pop,
				Count:      row.Counts[pop],
			})
		}
	}

	batch.Subjects = make([]domain.Subject, 0, len(subjectOrder))
	for _, id := range subjectOrder {
		acc := accumulators[id]
		batch.Subjects = append(batch.Subjects, domain.Subject{
			SubjectID: id,
			Project:   acc.project,
			Condition: acc.condition,
			Age:       acc.age,
			Sex:       acc.sex,
			Treatment: acc.treatment,
			Response:  acc.response,
		})
	}
	return batch, nil
}

// checkSubjectFields compares the row's subject-level fields against the
// values recorded on the subject's first row. Age and sex compare as trimmed
// raw text so whitespace-only differences still surface deterministically.
func checkSubjectFields(acc *subjectAccumulator, row Row) error {
	checks := []struct {
		field string
		old   string
		new   string
	}{
		{"project", acc.project, row.Project},
		{"condition", acc.condition, row.Condition},
		{"treatment", acc.treatment, row.Treatment},
		{"age", acc.ageText, row.AgeText},
		{"sex", acc.sexText, row.SexText},
	}
	for _, c := range checks {
		if c.old != c.new {
			return domain.InconsistentSubjectFieldError{
				SubjectID: row.SubjectID,
				Field:     c.field,
				Old:       c.old,
				New:       c.new,
				Row:       row.Index,
			}
		}
	}
	return nil
}
