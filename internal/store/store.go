package store

import (
	"context"
	"fmt"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Store is the full set of operations shared by every backend.
type Store interface {
	Insert(ctx context.Context, in domain.EventInput) (domain.Event, error)
	InsertBatch(ctx context.Context, inputs []domain.EventInput) ([]domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)

// Connect opens the backend named by driver and, for SQL backends, creates
// the schema.
func Connect(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}

	s, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return s, nil
}
