// Package analysis derives the statistical artifacts from a validated trial
// store: per-sample population frequencies and the responder-vs-non-responder
// differential results per analysis scope.
package analysis

import (
	"fmt"
	"math"

	"cytocore/pkg/domain"
)

const (
	// percentagePrecision is the number of fractional digits kept in
	// reported percentages.
	percentagePrecision = 6
	// percentSumTolerance is the allowed absolute deviation of a sample's
	// percentage sum from 100.0 (float rounding headroom).
	percentSumTolerance = 0.01
)

func roundPercentage(pct float64) float64 {
	shift := math.Pow10(percentagePrecision)
	return math.Round(pct*shift) / shift
}

// ComputeFrequencies derives one FrequencyRecord per (sample, population)
// from measurements ordered by sample then population. sampleCount is the
// store's independent sample count, used to cross-check the output shape.
// The result is validated before being returned: wrong row counts, wrong
// per-sample cardinality, or percentage sums outside tolerance abort the run
// so partial output is never produced.
func ComputeFrequencies(measurements []domain.Measurement, sampleCount int) ([]domain.FrequencyRecord, error) {
	populations := len(domain.Populations())

	totals := make(map[string]int)
	for _, m := range measurements {
		totals[m.SampleID] += m.Count
	}

	records := make([]domain.FrequencyRecord, 0, len(measurements))
	pctSums := make(map[string]float64, len(totals))
	perSample := make(map[string]int, len(totals))
	for _, m := range measurements {
		total := totals[m.SampleID]
		if total == 0 {
			return nil, domain.ZeroTotalError{SampleID: m.SampleID}
		}
		pct := float64(m.Count) / float64(total) * 100.0
		records = append(records, domain.FrequencyRecord{
			SampleID:   m.SampleID,
			TotalCount: total,
			Population: m.Population,
			Count:      m.Count,
			Percentage: roundPercentage(pct),
		})
		pctSums[m.SampleID] += pct
		perSample[m.SampleID]++
	}

	if expected := sampleCount * populations; len(records) != expected {
		return nil, domain.IntegrityError{Violations: []domain.Violation{{
			Rule:    "frequency_row_count",
			Message: fmt.Sprintf("got %d frequency rows, expected %d (samples=%d, populations=%d)", len(records), expected, sampleCount, populations),
		}}}
	}
	for sample, n := range perSample {
		if n != populations {
			return nil, domain.IntegrityError{Violations: []domain.Violation{{
				Rule:     "frequency_sample_cardinality",
				Message:  fmt.Sprintf("sample %s has %d population rows, expected %d", sample, n, populations),
				EntityID: sample,
			}}}
		}
	}

	worstSample := ""
	worstDeviation := 0.0
	for sample, sum := range pctSums {
		if dev := math.Abs(sum - 100.0); dev > percentSumTolerance && dev > worstDeviation {
			worstSample = sample
			worstDeviation = dev
		}
	}
	if worstSample != "" {
		return nil, domain.IntegrityError{Violations: []domain.Violation{{
			Rule:     "frequency_percentage_sum",
			Message:  fmt.Sprintf("sample %s percentage sum %.6f deviates from 100 beyond tolerance %.2f", worstSample, pctSums[worstSample], percentSumTolerance),
			EntityID: worstSample,
		}}}
	}

	return records, nil
}
