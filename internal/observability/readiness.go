package observability

import (
	"context"
	"fmt"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NamedCheck pairs a readiness checker with the name reported on failure.
type NamedCheck struct {
	Name    string
	Checker sharedobs.ReadinessChecker
}

// Readiness reports ready only when every check passes.
type Readiness struct {
	checks []NamedCheck
}

// NewReadiness combines checks; nil checkers are skipped.
func NewReadiness(checks ...NamedCheck) *Readiness {
	r := &Readiness{}
	for _, c := range checks {
		if c.Checker != nil {
			r.checks = append(r.checks, c)
		}
	}
	return r
}

// CheckReadiness returns the first failing check.
func (r *Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r.checks {
		if err := c.Checker.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}
