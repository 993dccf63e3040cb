package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cytocore/internal/analysis"
	"cytocore/internal/infra/persistence/memory"
	"cytocore/pkg/domain"
)

const csvHeader = "project,subject,condition,age,sex,treatment,response,sample,sample_type,time_from_treatment_start,b_cell,cd8_t_cell,cd4_t_cell,nk_cell,monocyte"

const fixtureCSV = csvHeader + "\n" +
	"prj1,r1,melanoma,60,F,miraclib,yes,s1,PBMC,0,10,20,40,15,15\n" +
	"prj1,r1,melanoma,60,F,miraclib,yes,s2,PBMC,7,11,19,41,15,14\n" +
	"prj1,r2,melanoma,55,M,miraclib,yes,s3,PBMC,0,12,18,42,14,14\n" +
	"prj1,r3,melanoma,62,F,miraclib,yes,s4,PBMC,0,8,22,44,13,13\n" +
	"prj1,n1,melanoma,58,M,miraclib,no,s5,PBMC,0,20,30,20,15,15\n" +
	"prj1,n2,melanoma,49,F,miraclib,no,s6,PBMC,0,22,28,18,16,16\n" +
	"prj1,n3,melanoma,66,M,miraclib,no,s7,PBMC,0,18,32,22,14,14\n" +
	"prj1,h1,healthy,40,F,none,,s8,PBMC,0,25,25,20,15,15\n"

func newTestService(t *testing.T) (*Service, *ExpvarMetricsRecorder) {
	t.Helper()
	metrics := NewExpvarMetricsRecorder("")
	service := NewService(memory.NewStore(), WithMetricsRecorder(metrics))
	return service, metrics
}

func TestIngestCSVEndToEnd(t *testing.T) {
	ctx := context.Background()
	service, metrics := newTestService(t)

	summary, err := service.IngestCSV(ctx, strings.NewReader(fixtureCSV))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Rows != 8 || summary.Subjects != 7 || summary.Samples != 8 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Measurements != 8*len(domain.Populations()) {
		t.Fatalf("unexpected measurement count: %+v", summary)
	}

	snap := metrics.Snapshot()
	if snap.Results["ingest_csv"]["success"] != 1 {
		t.Fatalf("ingest not observed: %+v", snap.Results)
	}
	if snap.Results["validate_integrity"]["success"] != 1 {
		t.Fatalf("integrity validation not observed: %+v", snap.Results)
	}
}

func TestIngestCSVRejectsConflict(t *testing.T) {
	ctx := context.Background()
	service, metrics := newTestService(t)

	bad := fixtureCSV + "prj1,r1,melanoma,60,F,miraclib,no,s9,PBMC,14,1,1,1,1,1\n"
	_, err := service.IngestCSV(ctx, strings.NewReader(bad))
	var respErr domain.InconsistentResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected InconsistentResponseError, got %v", err)
	}
	if metrics.Snapshot().Results["ingest_csv"]["error"] != 1 {
		t.Fatalf("failed ingest not observed")
	}
}

func TestFrequenciesAfterIngest(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	if _, err := service.IngestCSV(ctx, strings.NewReader(fixtureCSV)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	records, err := service.Frequencies(ctx)
	if err != nil {
		t.Fatalf("frequencies: %v", err)
	}
	if len(records) != 8*len(domain.Populations()) {
		t.Fatalf("expected full frequency table, got %d rows", len(records))
	}
	// every fixture sample totals 100, so counts equal percentages
	for _, rec := range records {
		if rec.TotalCount != 100 {
			t.Fatalf("unexpected total for %s: %d", rec.SampleID, rec.TotalCount)
		}
		if rec.Percentage != float64(rec.Count) {
			t.Fatalf("percentage %v does not match count %d", rec.Percentage, rec.Count)
		}
	}
}

func TestRunDifferentialPooled(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	if _, err := service.IngestCSV(ctx, strings.NewReader(fixtureCSV)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	result, err := service.RunDifferential(ctx, analysis.Scope{Label: "pooled"})
	if err != nil {
		t.Fatalf("run differential: %v", err)
	}
	if len(result.Results) != len(domain.Populations()) {
		t.Fatalf("expected %d results, got %d", len(domain.Populations()), len(result.Results))
	}
	for _, res := range result.Results {
		// healthy subject h1 is excluded by the default cohort filter
		if res.NResponders != 3 || res.NNonResponders != 3 {
			t.Fatalf("unexpected group sizes: %+v", res)
		}
	}
}

func TestReIngestIsDeterministic(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.IngestCSV(ctx, strings.NewReader(fixtureCSV)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first, err := service.Frequencies(ctx)
	if err != nil {
		t.Fatalf("first frequencies: %v", err)
	}

	if _, err := service.IngestCSV(ctx, strings.NewReader(fixtureCSV)); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	second, err := service.Frequencies(ctx)
	if err != nil {
		t.Fatalf("second frequencies: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("frequency table changed across identical loads")
	}
}
