package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
)

// TripTransformer implements Transformer with the domain Cleaner and reports
// the cleaning outcome as logs and metrics.
type TripTransformer struct {
	cleaner *domain.Cleaner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a TripTransformer applying rules.
func NewTransformer(rules domain.Rules, logger *slog.Logger, metrics *observability.Metrics) (*TripTransformer, error) {
	cleaner, err := domain.NewCleaner(rules)
	if err != nil {
		return nil, err
	}
	return &TripTransformer{cleaner: cleaner, logger: logger, metrics: metrics}, nil
}

// Transform cleans raw rows into a Table.
func (t *TripTransformer) Transform(ctx context.Context, raw []domain.RawTrip) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, report := t.cleaner.Clean(raw)

	for reason, n := range report.Dropped {
		if n > 0 {
			t.metrics.RowsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
	t.metrics.StationAliasesApplied.Add(float64(report.AliasRewrites))
	t.metrics.TableRows.Set(float64(table.Len()))

	t.logger.Info("trips cleaned",
		"input_rows", report.InputRows,
		"kept_rows", report.KeptRows,
		"dropped", report.Dropped,
		"alias_rewrites", report.AliasRewrites,
		"stations", report.DistinctStations,
	)
	return table, nil
}
