package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/bikeshare-trends/internal/config"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	trip := domain.Trip{
		ID:               "trip-0123456789abcdef",
		DepartureStation: "0001 10th & Cambie",
		ReturnStation:    "0002 Burrard Station",
		Departure:        time.Date(2020, 7, 4, 15, 10, 0, 0, time.UTC),
		Electric:         true,
		MembershipType:   "Annual",
		DurationSec:      900,
		DistanceM:        3100,
		MonthNum:         7,
		Month:            "Jul",
		Season:           domain.Summer,
		DayOfWeek:        "Saturday",
	}

	msg, err := serializeToMessage(trip)
	require.NoError(t, err)

	assert.Equal(t, []byte("trip-0123456789abcdef"), msg.Key)
	assert.Contains(t, string(msg.Value), `"season":"Summer"`)
	assert.NotContains(t, string(msg.Value), `"return"`, "zero return time is omitted")
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "season", msg.Headers[0].Key)
	assert.Equal(t, []byte("Summer"), msg.Headers[0].Value)
	assert.Equal(t, "month", msg.Headers[1].Key)
	assert.Equal(t, []byte("7"), msg.Headers[1].Value)

	var roundtrip domain.Trip
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, trip, roundtrip)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"b1:9092", "b2:9092"}, KafkaTopic: "cleaned-trips"}

	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "cleaned-trips", w.writer.Topic)
	assert.Equal(t, "tcp", w.writer.Addr.Network())
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
}

func TestLoadBatch_Empty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "t"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
