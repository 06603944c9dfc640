package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrRegionNotFound is returned when a region name does not resolve in the catalog.
	ErrRegionNotFound = errors.New("region not found")

	// ErrEmptyRegion is returned when a region filter is requested with an empty name.
	ErrEmptyRegion = errors.New("region must not be empty")

	// ErrMalformedInput is returned when a payload is not valid JSON.
	ErrMalformedInput = errors.New("malformed input")
)

const (
	msgRequired      = "This field is required."
	msgNotNull       = "This field may not be null."
	msgInvalidNumber = "A valid number is required."
	msgNotObject     = "Invalid data. Expected a dictionary."
)

// NonFieldErrors is the ValidationError key for problems not tied to one field.
const NonFieldErrors = "non_field_errors"

// ValidationError collects field-level validation messages.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

// Add records a message against a field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no messages were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
