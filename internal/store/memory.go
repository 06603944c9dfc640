// Package store persists flood events.
package store

import (
	"context"
	"sync"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// MemoryStore is an in-process event store. Thread-safe via RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	events []domain.Event
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Insert stores the event and assigns the next identifier.
func (s *MemoryStore) Insert(_ context.Context, in domain.EventInput) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(in), nil
}

// InsertBatch stores every event under one lock.
func (s *MemoryStore) InsertBatch(_ context.Context, inputs []domain.EventInput) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, s.insertLocked(in))
	}
	return out, nil
}

func (s *MemoryStore) insertLocked(in domain.EventInput) domain.Event {
	e := domain.Event{ID: s.nextID, Lat: in.Lat, Lng: in.Lng}
	s.nextID++
	s.events = append(s.events, e)
	return e
}

// List returns a copy of every stored event in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]domain.Event, 0, len(s.events)), s.events...), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
