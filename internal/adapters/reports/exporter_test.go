package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"image/png"
	"io"
	"testing"

	"cytocore/internal/analysis"
	"cytocore/internal/blob"
	"cytocore/pkg/domain"
)

func readCSV(t *testing.T, store blob.Store, key string) [][]string {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer func() { _ = rc.Close() }()
	rows, err := csv.NewReader(rc).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", key, err)
	}
	return rows
}

func scopeResultFixture(label string) analysis.ScopeResult {
	groups := make(analysis.Groups)
	for _, pop := range domain.Populations() {
		groups[pop] = map[string][]float64{
			domain.ResponseYes: {30, 32, 35},
			domain.ResponseNo:  {20, 22, 18},
		}
	}
	results := make([]domain.DifferentialResult, 0, len(domain.Populations()))
	for _, pop := range domain.Populations() {
		results = append(results, domain.DifferentialResult{
			Population: pop, NResponders: 3, NNonResponders: 3, PValue: 0.1, QValue: 0.5,
		})
	}
	return analysis.ScopeResult{Scope: analysis.Scope{Label: label}, Results: results, Groups: groups}
}

func TestPublishFrequencies(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store, nil)

	records := []domain.FrequencyRecord{
		{SampleID: "s1", TotalCount: 100, Population: domain.PopulationBCell, Count: 10, Percentage: 10},
		{SampleID: "s1", TotalCount: 100, Population: domain.PopulationCD8TCell, Count: 20, Percentage: 20.5},
	}
	info, err := exporter.PublishFrequencies(ctx, records)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if info.ContentType != "text/csv" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}

	rows := readCSV(t, store, "frequencies/sample_population_frequencies.csv")
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	wantHeader := []string{"sample", "total_count", "population", "count", "percentage"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header mismatch: %v", rows[0])
		}
	}
	if rows[1][4] != "10" || rows[2][4] != "20.5" {
		t.Fatalf("unexpected percentages: %v %v", rows[1], rows[2])
	}
}

func TestPublishDifferentialWritesPooledAlias(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store, nil)

	infos, err := exporter.PublishDifferential(ctx, scopeResultFixture("pooled"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected scope key plus alias, got %d", len(infos))
	}

	scoped := readCSV(t, store, "differential/pooled.csv")
	alias := readCSV(t, store, "differential/responders_vs_nonresponders.csv")
	if len(scoped) != len(alias) {
		t.Fatalf("alias differs from scoped output")
	}
	for i := range scoped {
		for j := range scoped[i] {
			if scoped[i][j] != alias[i][j] {
				t.Fatalf("alias cell mismatch at %d/%d", i, j)
			}
		}
	}
	if scoped[0][0] != "population" || scoped[0][3] != "p_value" {
		t.Fatalf("unexpected header: %v", scoped[0])
	}
	if len(scoped) != 1+len(domain.Populations()) {
		t.Fatalf("expected one row per population, got %d", len(scoped)-1)
	}
}

func TestPublishDifferentialScopedKeyOnly(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store, nil)

	infos, err := exporter.PublishDifferential(ctx, scopeResultFixture("timepoint_0"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "differential/timepoint_0.csv" {
		t.Fatalf("unexpected infos: %+v", infos)
	}
	if _, err := store.Head(ctx, "differential/responders_vs_nonresponders.csv"); err == nil {
		t.Fatalf("alias must only exist for the pooled scope")
	}
}

func TestPublishBoxPlotsDecodablePNGs(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store, nil)

	infos, err := exporter.PublishBoxPlots(ctx, scopeResultFixture("pooled"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(infos) != len(domain.Populations()) {
		t.Fatalf("expected one plot per population, got %d", len(infos))
	}
	for _, info := range infos {
		_, rc, err := store.Get(ctx, info.Key)
		if err != nil {
			t.Fatalf("get %s: %v", info.Key, err)
		}
		payload, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", info.Key, err)
		}
		if _, err := png.Decode(bytes.NewReader(payload)); err != nil {
			t.Fatalf("plot %s is not a valid PNG: %v", info.Key, err)
		}
	}
}

func TestRepublishOverwrites(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store, nil)

	if _, err := exporter.PublishDifferential(ctx, scopeResultFixture("pooled")); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := exporter.PublishDifferential(ctx, scopeResultFixture("pooled")); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	infos, err := store.List(ctx, "differential/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 keys after republish, got %d", len(infos))
	}
}
