package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
)

// Extractor reads every raw trip row from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawTrip, error)
}

// Transformer turns raw rows into the cleaned trip table.
type Transformer interface {
	Transform(ctx context.Context, raw []domain.RawTrip) (*domain.Table, error)
}

// BatchLoader writes cleaned trips to a downstream sink.
type BatchLoader interface {
	LoadBatch(ctx context.Context, trips []domain.Trip) error
}

const (
	initialBackoff     = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
	maxPublishAttempts = 5
)

// Pipeline builds the trip table once at startup and optionally publishes it.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	table       atomic.Pointer[domain.Table]
}

// New creates a Pipeline with the given stages and observability. loader may
// be nil when publishing is disabled.
func New(e Extractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the trip table has been built.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.table.Load() == nil {
		return errors.New("trip table has not been built yet")
	}
	return nil
}

// Table returns the built table, or nil before Run has succeeded.
func (p *Pipeline) Table() *domain.Table {
	return p.table.Load()
}

// Run extracts and cleans every trip and returns the resulting table. It
// blocks until the table is complete.
func (p *Pipeline) Run(ctx context.Context) (*domain.Table, error) {
	start := time.Now()
	p.logger.Info("pipeline started")

	raw, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract trips: %w", err)
	}

	table, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("clean trips: %w", err)
	}

	p.table.Store(table)
	p.metrics.PipelineReady.Set(1)
	p.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("trip table ready", "trips", table.Len(), "duration", time.Since(start))
	return table, nil
}

// Publish writes the table to the loader in batches. Each batch is retried
// with exponential backoff; a batch that still fails ends publishing with an
// error. Publish is a no-op without a loader.
func (p *Pipeline) Publish(ctx context.Context, table *domain.Table) error {
	if p.loader == nil || table == nil {
		return nil
	}

	trips := table.Trips()
	published := 0
	for start := 0; start < len(trips); start += p.batchSize {
		end := min(start+p.batchSize, len(trips))
		batch := trips[start:end]
		if err := p.loadWithRetry(ctx, batch); err != nil {
			return fmt.Errorf("publish trips %d-%d: %w", start, end-1, err)
		}
		published += len(batch)
		p.metrics.TripsPublished.Add(float64(len(batch)))
	}

	p.logger.Info("trips published", "count", published)
	return nil
}

// loadWithRetry attempts one batch up to maxPublishAttempts times.
func (p *Pipeline) loadWithRetry(ctx context.Context, batch []domain.Trip) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		if err = p.loader.LoadBatch(ctx, batch); err == nil {
			return nil
		}
		p.metrics.PublishErrors.Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("publish batch failed",
			"error", err,
			"attempt", attempt,
			"batch_size", len(batch),
		)
		if attempt == maxPublishAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
