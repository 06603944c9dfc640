package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := domain.AllEvents()
	if values, ok := r.URL.Query()["region"]; ok {
		q = domain.InRegion(values[0])
	}

	events, err := s.events.ListEvents(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request body is too large.", nil)
			return
		}
		writeError(w, r, http.StatusBadRequest, codeMalformedRequest, "Could not read request body.", nil)
		return
	}

	in, err := domain.DecodeEventInput(body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	e, err := s.events.CreateEvent(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGeometry(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.geometry.Raw()) //nolint:errcheck // client went away
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.geometry.Names())
}
