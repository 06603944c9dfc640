package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-viewer-api/internal/config"
	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Writer announces stored flood events on a Kafka topic.
// It implements events.Publisher.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured events topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// PublishCreated writes one message per newly stored event, keyed by its ID,
// in a single batch.
func (w *Writer) PublishCreated(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := w.clock.Now()
	msgs := make([]kafkago.Message, 0, len(events))
	for _, e := range events {
		msg, err := serializeToMessage(e, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events: %w", len(msgs), err)
	}
	w.logger.DebugContext(ctx, "events published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message.
func serializeToMessage(e domain.Event, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize flood event: %w", err)
	}
	id := strconv.FormatInt(e.ID, 10)
	return kafkago.Message{
		Key:   []byte(id),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(id)},
			{Key: "published_at", Value: []byte(publishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
