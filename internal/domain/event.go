package domain

import (
	"context"
	"math"
	"time"
)

// Event is a stored flood event.
type Event struct {
	ID  int64   `json:"id" db:"id"`
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// EventInput is a candidate event that has not been stored yet.
type EventInput struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports non-finite coordinates. Missing fields are caught earlier by
// DecodeEventInput, which is the only way external input becomes an EventInput.
func (in EventInput) Validate() error {
	verr := &ValidationError{}
	if !isFinite(in.Lat) {
		verr.Add("lat", msgInvalidNumber)
	}
	if !isFinite(in.Lng) {
		verr.Add("lng", msgInvalidNumber)
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// RawReport is an unprocessed flood report read from the reports topic.
type RawReport struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
