package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // registers the "postgres" driver
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Supported STORE_DRIVER values.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	"sqlite3": `CREATE TABLE IF NOT EXISTS flood_events (
		id  INTEGER PRIMARY KEY AUTOINCREMENT,
		lat REAL NOT NULL,
		lng REAL NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS flood_events (
		id  BIGSERIAL PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL
	)`,
}

const (
	insertEventSQL = `INSERT INTO flood_events (lat, lng) VALUES (?, ?) RETURNING id`
	listEventsSQL  = `SELECT id, lat, lng FROM flood_events ORDER BY id`
)

// SQLStore keeps events in SQLite or PostgreSQL through sqlx.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to the database for the given STORE_DRIVER value.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var driverName string
	switch driver {
	case DriverSQLite:
		driverName = "sqlite3"
	case DriverPostgres:
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", driver, err)
	}
	if driverName == "sqlite3" {
		// SQLite allows a single writer; one connection also keeps
		// ":memory:" databases from splitting across connections.
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an existing connection. The driver name selects the
// schema dialect and bind variables.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the events table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ddl, ok := schemas[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.db.DriverName())
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create flood_events table: %w", err)
	}
	return nil
}

// Insert stores one event and returns it with its assigned id.
func (s *SQLStore) Insert(ctx context.Context, in domain.EventInput) (domain.Event, error) {
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(insertEventSQL), in.Lat, in.Lng).Scan(&id); err != nil {
		return domain.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return domain.Event{ID: id, Lat: in.Lat, Lng: in.Lng}, nil
}

// InsertBatch stores all events in one transaction; nothing is stored on error.
func (s *SQLStore) InsertBatch(ctx context.Context, inputs []domain.EventInput) ([]domain.Event, error) {
	if len(inputs) == 0 {
		return []domain.Event{}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := tx.Rebind(insertEventSQL)
	out := make([]domain.Event, 0, len(inputs))
	for i, in := range inputs {
		var id int64
		if err := tx.QueryRowxContext(ctx, query, in.Lat, in.Lng).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert event %d of %d: %w", i+1, len(inputs), err)
		}
		out = append(out, domain.Event{ID: id, Lat: in.Lat, Lng: in.Lng})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

// List returns every stored event.
func (s *SQLStore) List(ctx context.Context) ([]domain.Event, error) {
	events := []domain.Event{}
	if err := s.db.SelectContext(ctx, &events, listEventsSQL); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
