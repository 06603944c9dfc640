// Package events implements retrieval and creation of flood events on top of
// an event store and a region catalog.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/observability"
)

// publishTimeout bounds how long an announcement may hold up a request or batch.
const publishTimeout = 2 * time.Second

// Event sources used as metric labels.
const (
	SourceAPI   = "api"
	SourceKafka = "kafka"
)

// Store persists and lists events.
type Store interface {
	Insert(ctx context.Context, in domain.EventInput) (domain.Event, error)
	InsertBatch(ctx context.Context, inputs []domain.EventInput) ([]domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Ping(ctx context.Context) error
}

// Catalog resolves region names to polygons.
type Catalog interface {
	Lookup(name string) (domain.Region, error)
}

// Publisher announces newly stored events.
type Publisher interface {
	PublishCreated(ctx context.Context, events ...domain.Event) error
}

// Service answers event queries and records new events.
type Service struct {
	store     Store
	catalog   Catalog
	axis      domain.AxisOrder
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	publishTimeout time.Duration
}

// NewService creates a Service. Pass a nil publisher to disable announcements.
func NewService(store Store, catalog Catalog, axis domain.AxisOrder, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		axis:      axis,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,

		publishTimeout: publishTimeout,
	}
}

// ListEvents returns every stored event, or only those inside the named
// region when q is filtered. An unknown region yields domain.ErrRegionNotFound,
// never an empty list.
func (s *Service) ListEvents(ctx context.Context, q domain.RegionQuery) ([]domain.Event, error) {
	if err := q.Validate(); err != nil {
		s.metrics.RegionQueries.WithLabelValues("invalid").Inc()
		return nil, err
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if all == nil {
		all = []domain.Event{}
	}

	if !q.Filtered() {
		s.metrics.RegionQueries.WithLabelValues("all").Inc()
		return all, nil
	}

	region, err := s.catalog.Lookup(q.Region())
	if err != nil {
		if errors.Is(err, domain.ErrRegionNotFound) {
			s.metrics.RegionQueries.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	matched := domain.FilterByRegion(all, region, s.axis)
	s.metrics.RegionQueries.WithLabelValues("filtered").Inc()
	s.metrics.RegionMatches.Observe(float64(len(matched)))
	s.logger.DebugContext(ctx, "region filter applied",
		"region", region.Name,
		"total", len(all),
		"matched", len(matched),
	)
	return matched, nil
}

// CreateEvent validates and stores a single event submitted through the API.
func (s *Service) CreateEvent(ctx context.Context, in domain.EventInput) (domain.Event, error) {
	if err := in.Validate(); err != nil {
		s.metrics.ValidationFailures.WithLabelValues(SourceAPI).Inc()
		return domain.Event{}, err
	}

	e, err := s.store.Insert(ctx, in)
	if err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}
	s.metrics.EventsCreated.WithLabelValues(SourceAPI).Inc()
	s.logger.InfoContext(ctx, "event created", "id", e.ID, "lat", e.Lat, "lng", e.Lng)

	s.publish(ctx, e)
	return e, nil
}

// LoadBatch stores a batch of ingested reports in one transaction. Every
// input must be valid; the pipeline filters invalid reports before calling.
func (s *Service) LoadBatch(ctx context.Context, inputs []domain.EventInput) error {
	if len(inputs) == 0 {
		return nil
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			s.metrics.ValidationFailures.WithLabelValues(SourceKafka).Inc()
			return fmt.Errorf("batch input %d: %w", i, err)
		}
	}

	created, err := s.store.InsertBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	s.metrics.EventsCreated.WithLabelValues(SourceKafka).Add(float64(len(created)))

	s.publish(ctx, created...)
	return nil
}

// CheckReadiness reports whether the store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish announces stored events best-effort, bounded by publishTimeout.
func (s *Service) publish(ctx context.Context, created ...domain.Event) {
	if s.publisher == nil || len(created) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishCreated(ctx, created...); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.WarnContext(ctx, "publish created events failed",
			"count", len(created), "first_id", created[0].ID, "error", err)
	}
}
