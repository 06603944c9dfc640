package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeEventInput parses a JSON object into a validated EventInput.
// Malformed JSON yields ErrMalformedInput; missing, null, or non-numeric
// coordinates yield a *ValidationError naming each offending field.
func DecodeEventInput(data []byte) (EventInput, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return EventInput{}, fmt.Errorf("%w: empty body", ErrMalformedInput)
	}
	if !json.Valid(trimmed) {
		return EventInput{}, fmt.Errorf("%w: invalid JSON", ErrMalformedInput)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		verr := &ValidationError{}
		verr.Add(NonFieldErrors, msgNotObject)
		return EventInput{}, verr
	}

	verr := &ValidationError{}
	lat := decodeCoordinate(fields, "lat", verr)
	lng := decodeCoordinate(fields, "lng", verr)
	if !verr.Empty() {
		return EventInput{}, verr
	}
	return EventInput{Lat: lat, Lng: lng}, nil
}

func decodeCoordinate(fields map[string]json.RawMessage, name string, verr *ValidationError) float64 {
	raw, ok := fields[name]
	if !ok {
		verr.Add(name, msgRequired)
		return 0
	}
	if string(raw) == "null" {
		verr.Add(name, msgNotNull)
		return 0
	}

	var v float64
	switch {
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			verr.Add(name, msgInvalidNumber)
			return 0
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			verr.Add(name, msgInvalidNumber)
			return 0
		}
		v = f
	default:
		if err := json.Unmarshal(raw, &v); err != nil {
			verr.Add(name, msgInvalidNumber)
			return 0
		}
	}

	if !isFinite(v) {
		verr.Add(name, msgInvalidNumber)
		return 0
	}
	return v
}
