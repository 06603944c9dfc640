package pipeline

import (
	"context"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// ReportDecoder implements Decoder by parsing the report value as a JSON
// {lat, lng} object, applying the same rules as POST /events.
type ReportDecoder struct{}

// NewDecoder creates a ReportDecoder.
func NewDecoder() *ReportDecoder {
	return &ReportDecoder{}
}

func (ReportDecoder) Decode(_ context.Context, raw domain.RawReport) (domain.EventInput, error) {
	return domain.DecodeEventInput(raw.Value)
}
