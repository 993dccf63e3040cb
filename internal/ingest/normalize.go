// Package ingest converts raw cell-count CSV rows into a consolidated
// TrialBatch, enforcing the cross-row consistency invariants as early as
// possible.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"cytocore/pkg/domain"
)

// NormalizeOptionalText trims whitespace and maps empty or whitespace-only
// values to absent. Every optional field (response, sex) goes through here.
func NormalizeOptionalText(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ParseOptionalInt normalizes then parses an optional integer field.
// Blank values are absent; a non-blank value that is not an integer is a
// MalformedFieldError naming the row and field.
func ParseOptionalInt(row int, field, raw string) (*int, error) {
	text := NormalizeOptionalText(raw)
	if text == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*text)
	if err != nil {
		return nil, domain.MalformedFieldError{Row: row, Field: field, Value: raw, Err: err}
	}
	return &n, nil
}

func requiredText(row int, field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.MalformedFieldError{Row: row, Field: field, Value: raw, Err: fmt.Errorf("required value is blank")}
	}
	return trimmed, nil
}

func requiredInt(row int, field, raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.MalformedFieldError{Row: row, Field: field, Value: raw, Err: fmt.Errorf("required value is blank")}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, domain.MalformedFieldError{Row: row, Field: field, Value: raw, Err: err}
	}
	return n, nil
}

func requiredCount(row int, field, raw string) (int, error) {
	n, err := requiredInt(row, field, raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, domain.MalformedFieldError{Row: row, Field: field, Value: raw, Err: fmt.Errorf("count must be non-negative")}
	}
	return n, nil
}
