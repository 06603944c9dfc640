package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

// Error codes returned in the response body.
const (
	codeValidation       = "validation_error"
	codeMalformedRequest = "malformed_request"
	codeInvalidRegion    = "invalid_region"
	codeRegionNotFound   = "region_not_found"
	codePayloadTooLarge  = "payload_too_large"
	codeInternal         = "internal_error"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// writeServiceError maps domain errors to status codes. Anything unrecognised
// is a 500 with the details kept in the log.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, codeValidation, "Invalid event.", verr.Fields)
	case errors.Is(err, domain.ErrMalformedInput):
		writeError(w, r, http.StatusBadRequest, codeMalformedRequest, "Request body must be valid JSON.", nil)
	case errors.Is(err, domain.ErrEmptyRegion):
		writeError(w, r, http.StatusBadRequest, codeInvalidRegion, "Region must not be empty.", nil)
	case errors.Is(err, domain.ErrRegionNotFound):
		writeError(w, r, http.StatusNotFound, codeRegionNotFound, "Unknown region: "+r.URL.Query().Get("region"), nil)
	case errors.Is(err, context.Canceled):
		s.logger.InfoContext(r.Context(), "request canceled", "path", r.URL.Path)
		writeError(w, r, http.StatusServiceUnavailable, codeInternal, "Request canceled.", nil)
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal server error.", nil)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string][]string) {
	setErrorCode(r.Context(), code)
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: message,
		Fields:  fields,
	}})
}
