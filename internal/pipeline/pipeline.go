// Package pipeline ingests flood reports from a message source into the event store.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw reports from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReport, error)
}

// Decoder turns a raw report into a candidate event.
type Decoder interface {
	Decode(ctx context.Context, raw domain.RawReport) (domain.EventInput, error)
}

// BatchLoader stores multiple candidate events.
type BatchLoader interface {
	LoadBatch(ctx context.Context, inputs []domain.EventInput) error
}

// Pipeline orchestrates the extract-decode-load loop.
type Pipeline struct {
	extractor BatchExtractor
	decoder   Decoder
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	running   atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability. A nil clock
// means the real clock.
func New(e BatchExtractor, d Decoder, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		extractor: e,
		decoder:   d,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil while the pipeline loop is running.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("ingestion pipeline is not running")
	}
	return nil
}

// Run executes the batch ingestion loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.running.Store(true)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// processBatch runs one extract-decode-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := p.clock.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "retry_in", backoff.String())
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ReportsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	if !p.decodeAndLoad(ctx, rawBatch, backoff) {
		return false
	}
	p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
	return true
}

// decodeAndLoad decodes each report, loads the valid ones in one batch, and
// then commits every report of the batch in offset order. Commits are
// cumulative per partition, so nothing is committed before the load succeeds.
// A failed load retries the same batch with backoff. Returns false if the
// pipeline should stop.
func (p *Pipeline) decodeAndLoad(ctx context.Context, rawBatch []domain.RawReport, backoff *time.Duration) bool {
	inputs := make([]domain.EventInput, 0, len(rawBatch))

	for _, raw := range rawBatch {
		in, err := p.decoder.Decode(ctx, raw)
		if err != nil {
			p.logger.Warn("invalid flood report, skipping",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.IngestErrors.Inc()
			continue
		}
		inputs = append(inputs, in)
	}

	if len(inputs) > 0 {
		for {
			err := p.loader.LoadBatch(ctx, inputs)
			if err == nil {
				break
			}
			p.logger.Error("load batch failed", "error", err, "batch_size", len(inputs), "retry_in", backoff.String())
			if !p.backoffOrStop(ctx, backoff) {
				return false
			}
		}
		*backoff = initialBackoff
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !p.sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff)
	return true
}

// commitOffset commits the report offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawReport) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
