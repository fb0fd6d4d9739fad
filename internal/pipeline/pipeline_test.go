package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
	"github.com/couchcryptid/bikeshare-trends/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	rows []domain.RawTrip
	err  error
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.RawTrip, error) {
	return m.rows, m.err
}

type mockLoader struct {
	mu       sync.Mutex
	batches  [][]domain.Trip
	failures int // fail this many calls before succeeding
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, trips []domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.batches = append(m.batches, trips)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTransformer(t *testing.T, metrics *observability.Metrics) *pipeline.TripTransformer {
	t.Helper()
	tfm, err := pipeline.NewTransformer(domain.DefaultRules(), discardLogger(), metrics)
	require.NoError(t, err)
	return tfm
}

func rawTrip(departure, station, duration string) domain.RawTrip {
	return domain.RawTrip{
		Departure:        departure,
		Return:           departure,
		ElectricBike:     "False",
		DepartureStation: station,
		ReturnStation:    "0002 Burrard Station",
		MembershipType:   "Annual",
		CoveredDistance:  "1000",
		Duration:         duration,
	}
}

// --- tests ---

func TestPipeline_Run_BuildsTable(t *testing.T) {
	fixed := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	ext := &mockExtractor{rows: []domain.RawTrip{
		rawTrip("2020-01-15 10:00", "0099 Old Gallery", "600"),
		rawTrip("2020-01-16 10:00", "0001 10th & Cambie", "-5"),
		rawTrip("2020-01-17 10:00", "0991 HQ Workshop", "600"),
		rawTrip("", "0001 10th & Cambie", "600"),
	}}
	metrics := newTestMetrics()
	p := pipeline.New(ext, newTransformer(t, metrics), nil, discardLogger(), metrics, 10)

	require.Error(t, p.CheckReadiness(context.Background()))

	table, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "0099 šxʷƛ̓ənəq Xwtl'e7énḵ Square - Vancouver Art Gallery North Plaza", table.At(0).DepartureStation)
	assert.Equal(t, fixed, table.LoadedAt())
	assert.Same(t, table, p.Table())
	require.NoError(t, p.CheckReadiness(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues(domain.DropNegativeDuration)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues(domain.DropPlaceholderStation)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues(domain.DropMissingField)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationAliasesApplied))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TableRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PipelineReady))
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: errors.New("disk gone")}
	metrics := newTestMetrics()
	p := pipeline.New(ext, newTransformer(t, metrics), nil, discardLogger(), metrics, 10)

	_, err := p.Run(context.Background())

	require.ErrorContains(t, err, "disk gone")
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.Nil(t, p.Table())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineReady))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{rows: []domain.RawTrip{rawTrip("2020-01-15 10:00", "0001 A", "60")}}
	metrics := newTestMetrics()
	p := pipeline.New(ext, newTransformer(t, metrics), nil, discardLogger(), metrics, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Publish_Batches(t *testing.T) {
	var rows []domain.RawTrip
	for day := 10; day < 15; day++ {
		rows = append(rows, rawTrip("2020-03-"+strconv.Itoa(day)+" 09:00", "0001 10th & Cambie", "600"))
	}
	metrics := newTestMetrics()
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{rows: rows}, newTransformer(t, metrics), ldr, discardLogger(), metrics, 2)

	table, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), table))

	sizes := make([]int, len(ldr.batches))
	var ids []string
	for i, b := range ldr.batches {
		sizes[i] = len(b)
		for _, trip := range b {
			ids = append(ids, trip.ID)
		}
	}
	if diff := cmp.Diff([]int{2, 2, 1}, sizes); diff != "" {
		t.Fatalf("batch sizes mismatch (-want +got):\n%s", diff)
	}
	var want []string
	for _, trip := range table.Trips() {
		want = append(want, trip.ID)
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("published order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.TripsPublished))
}

func TestPipeline_Publish_RetriesThenSucceeds(t *testing.T) {
	metrics := newTestMetrics()
	ldr := &mockLoader{failures: 2}
	rows := []domain.RawTrip{rawTrip("2020-03-10 09:00", "0001 10th & Cambie", "600")}
	p := pipeline.New(&mockExtractor{rows: rows}, newTransformer(t, metrics), ldr, discardLogger(), metrics, 10)

	table, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), table))
	assert.Equal(t, 3, ldr.calls)
	assert.Len(t, ldr.batches, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PublishErrors))
}

func TestPipeline_Publish_StopsOnCancel(t *testing.T) {
	metrics := newTestMetrics()
	ldr := &mockLoader{failures: 100}
	rows := []domain.RawTrip{rawTrip("2020-03-10 09:00", "0001 10th & Cambie", "600")}
	p := pipeline.New(&mockExtractor{rows: rows}, newTransformer(t, metrics), ldr, discardLogger(), metrics, 10)

	table, err := p.Run(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = p.Publish(ctx, table)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, ldr.batches)
}

func TestPipeline_Publish_NoLoader(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.New(&mockExtractor{}, newTransformer(t, metrics), nil, discardLogger(), metrics, 10)

	assert.NoError(t, p.Publish(context.Background(), domain.NewTable(nil)))
}

func TestNewTransformer_InvalidRules(t *testing.T) {
	_, err := pipeline.NewTransformer(domain.Rules{Placeholders: []string{""}}, discardLogger(), newTestMetrics())
	require.ErrorIs(t, err, domain.ErrInvalidRules)
}
