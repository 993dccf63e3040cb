package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cytocore/pkg/domain"
)

// Column names the input header must carry, in addition to one column per
// allowlisted population.
var requiredColumns = []string{
	"subject",
	"sample",
	"project",
	"condition",
	"treatment",
	"sample_type",
	"time_from_treatment_start",
	"age",
	"sex",
	"response",
}

// Row is one parsed data row. AgeText and SexText keep the trimmed raw text
// so subject consistency can be compared deterministically even for values
// that normalize to the same parsed form.
type Row struct {
	Index                  int // 1-based over data rows
	SubjectID              string
	SampleID               string
	Project                string
	Condition              string
	Treatment              string
	SampleType             string
	TimeFromTreatmentStart int
	AgeText                string
	SexText                string
	Age                    *int
	Sex                    *string
	Response               *string
	Counts                 map[domain.Population]int
}

// ReadRows validates the header and parses every data row. Header problems
// are a SchemaError raised before any row is touched; per-row problems are
// MalformedFieldErrors naming the row and field.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, domain.SchemaError{Columns: requiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Tolerate a UTF-8 BOM on the first column name.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, pop := range domain.Populations() {
		if _, ok := index[string(pop)]; !ok {
			missing = append(missing, string(pop))
		}
	}
	if len(missing) > 0 {
		return nil, domain.SchemaError{Columns: missing}
	}

	field := func(record []string, name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []Row
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum, err)
		}

		row := Row{Index: rowNum, Counts: make(map[domain.Population]int, len(domain.Populations()))}
		if row.SubjectID, err = requiredText(rowNum, "subject", field(record, "subject")); err != nil {
			return nil, err
		}
		if row.SampleID, err = requiredText(rowNum, "sample", field(record, "sample")); err != nil {
			return nil, err
		}
		if row.Project, err = requiredText(rowNum, "project", field(record, "project")); err != nil {
			return nil, err
		}
		if row.Condition, err = requiredText(rowNum, "condition", field(record, "condition")); err != nil {
			return nil, err
		}
		if row.Treatment, err = requiredText(rowNum, "treatment", field(record, "treatment")); err != nil {
			return nil, err
		}
		if row.SampleType, err = requiredText(rowNum, "sample_type", field(record, "sample_type")); err != nil {
			return nil, err
		}
		if row.TimeFromTreatmentStart, err = requiredInt(rowNum, "time_from_treatment_start", field(record, "time_from_treatment_start")); err != nil {
			return nil, err
		}

		row.AgeText = strings.TrimSpace(field(record, "age"))
		row.SexText = strings.TrimSpace(field(record, "sex"))
		if row.Age, err = ParseOptionalInt(rowNum, "age", field(record, "age")); err != nil {
			return nil, err
		}
		if row.Age != nil && *row.Age < 0 {
			return nil, domain.MalformedFieldError{Row: rowNum, Field: "age", Value: row.AgeText, Err: fmt.Errorf("age must be non-negative")}
		}
		row.Sex = NormalizeOptionalText(field(record, "sex"))
		row.Response = NormalizeOptionalText(field(record, "response"))

		for _, pop := range domain.Populations() {
			count, err := requiredCount(rowNum, string(pop), field(record, string(pop)))
			if err != nil {
				return nil, err
			}
			row.Counts[pop] = count
		}
		rows = append(rows, row)
	}
	return rows, nil
}
