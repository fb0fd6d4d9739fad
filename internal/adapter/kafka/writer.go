package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/bikeshare-trends/internal/config"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

// Writer produces cleaned trips to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured trip topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes trips in a single WriteMessages call.
// Messages are keyed by trip ID.
func (w *Writer) LoadBatch(ctx context.Context, trips []domain.Trip) error {
	if len(trips) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(trips))
	for i := range trips {
		msg, err := serializeToMessage(trips[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d trips: %w", len(msgs), err)
	}
	w.logger.Debug("trip batch written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Trip into a Kafka message.
func serializeToMessage(trip domain.Trip) (kafkago.Message, error) {
	data, err := json.Marshal(trip)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trip: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(trip.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "season", Value: []byte(trip.Season)},
			{Key: "month", Value: []byte(strconv.Itoa(trip.MonthNum))},
		},
	}, nil
}
