// Package kafka exports loaded collision records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/config"
	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every exported message.
const (
	HeaderBorough   = "borough"
	HeaderLoadID    = "load_id"
	HeaderCrashTime = "crash_time"
)

// Writer produces collision records to a Kafka topic.
// It implements publish.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes records from one table load in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, loadID string, records []domain.CollisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(loadID, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("batch written", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CollisionRecord into a Kafka message keyed by
// collision id. Raw cell values are not exported.
func serializeToMessage(loadID string, rec domain.CollisionRecord) (kafkago.Message, error) {
	rec.Values = nil
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize collision %s: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Time:  rec.DateTime,
		Headers: []kafkago.Header{
			{Key: HeaderBorough, Value: []byte(rec.Borough)},
			{Key: HeaderLoadID, Value: []byte(loadID)},
			{Key: HeaderCrashTime, Value: []byte(rec.DateTime.Format(time.RFC3339))},
		},
	}, nil
}
