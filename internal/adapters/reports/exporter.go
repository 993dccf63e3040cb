// Package reports publishes derived analysis artifacts (CSV tables and plot
// images) through the blob store.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"cytocore/internal/analysis"
	"cytocore/internal/blob"
	"cytocore/pkg/domain"
)

const (
	frequenciesKey = "frequencies/sample_population_frequencies.csv"
	// pooledAliasKey names the headline comparison so downstream readers
	// find it without knowing the scope layout.
	pooledAliasKey = "differential/responders_vs_nonresponders.csv"
	pooledScope    = "pooled"
)

// Exporter renders analysis outputs and publishes them. Keys are stable per
// scope, so re-running an analysis replaces the previous artifacts.
type Exporter struct {
	store  blob.Store
	logger *slog.Logger
}

// NewExporter constructs an exporter over the given blob store. A nil logger
// falls back to slog.Default.
func NewExporter(store blob.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, logger: logger}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (e *Exporter) putCSV(ctx context.Context, key string, header []string, rows [][]string) (blob.Info, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return blob.Info{}, err
	}
	if err := w.WriteAll(rows); err != nil {
		return blob.Info{}, err
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{ContentType: "text/csv"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("publish %s: %w", key, err)
	}
	return info, nil
}

// PublishFrequencies writes the per-(sample, population) frequency table.
func (e *Exporter) PublishFrequencies(ctx context.Context, records []domain.FrequencyRecord) (blob.Info, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.SampleID,
			strconv.Itoa(rec.TotalCount),
			string(rec.Population),
			strconv.Itoa(rec.Count),
			formatFloat(rec.Percentage),
		})
	}
	info, err := e.putCSV(ctx, frequenciesKey, []string{"sample", "total_count", "population", "count", "percentage"}, rows)
	if err != nil {
		return blob.Info{}, err
	}
	e.logger.InfoContext(ctx, "frequencies published", slog.String("key", info.Key), slog.Int("rows", len(records)))
	return info, nil
}

// PublishDifferential writes one scope's test results. The pooled scope is
// additionally published under the stable headline key.
func (e *Exporter) PublishDifferential(ctx context.Context, result analysis.ScopeResult) ([]blob.Info, error) {
	rows := make([][]string, 0, len(result.Results))
	for _, res := range result.Results {
		rows = append(rows, []string{
			string(res.Population),
			strconv.Itoa(res.NResponders),
			strconv.Itoa(res.NNonResponders),
			formatFloat(res.PValue),
			formatFloat(res.QValue),
		})
	}
	header := []string{"population", "n_responders", "n_nonresponders", "p_value", "q_value"}

	keys := []string{fmt.Sprintf("differential/%s.csv", result.Scope.Label)}
	if result.Scope.Label == pooledScope {
		keys = append(keys, pooledAliasKey)
	}
	infos := make([]blob.Info, 0, len(keys))
	for _, key := range keys {
		info, err := e.putCSV(ctx, key, header, rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	e.logger.InfoContext(ctx, "differential published",
		slog.String("scope", result.Scope.Label),
		slog.Int("populations", len(result.Results)),
	)
	return infos, nil
}

// PublishBoxPlots renders one responder-vs-non-responder box plot per
// population for the scope.
func (e *Exporter) PublishBoxPlots(ctx context.Context, result analysis.ScopeResult) ([]blob.Info, error) {
	infos := make([]blob.Info, 0, len(domain.Populations()))
	for _, pop := range domain.Populations() {
		groups := result.Groups[pop]
		payload, err := renderBoxPlot(groups[domain.ResponseYes], groups[domain.ResponseNo])
		if err != nil {
			return nil, fmt.Errorf("render plot for %s: %w", pop, err)
		}
		key := fmt.Sprintf("plots/%s/%s.png", result.Scope.Label, pop)
		info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "image/png"})
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", key, err)
		}
		infos = append(infos, info)
	}
	e.logger.InfoContext(ctx, "box plots published", slog.String("scope", result.Scope.Label), slog.Int("plots", len(infos)))
	return infos, nil
}
