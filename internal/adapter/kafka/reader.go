package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-viewer-api/internal/config"
	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Reader consumes flood reports from a Kafka topic as part of a consumer group.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a Kafka consumer for the configured reports topic.
// Offsets are committed explicitly by the pipeline after each report is handled.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaReportsTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch blocks until one report is available, then keeps reading until
// batchSize reports are collected or the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReport, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := make([]domain.RawReport, 0, batchSize)
	batch = append(batch, r.toRawReport(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			// Deadline or shutdown ends the batch; anything else resurfaces on the next fetch.
			if flushCtx.Err() == nil {
				r.logger.Debug("fetch ended batch early", "error", err, "batch_size", len(batch))
			}
			break
		}
		batch = append(batch, r.toRawReport(msg))
	}
	return batch, nil
}

// Close leaves the consumer group and releases connections.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) toRawReport(msg kafkago.Message) domain.RawReport {
	raw := mapMessageToRawReport(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func mapMessageToRawReport(msg kafkago.Message) domain.RawReport {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawReport{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
