package ai

import (
	"context"
	"fmt"
	"strings"
)

// Attempt is one provider in a failover chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Failure records why a single provider attempt failed.
type Failure struct {
	Provider string
	Reason   string
}

// ExhaustedError means every provider in a chain failed. The message carries
// the full failure trail so callers can surface every vendor's reason, not
// just the last one.
type ExhaustedError struct {
	Capability string
	Failures   []Failure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: no providers configured", e.Capability)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Provider, f.Reason))
	}
	return fmt.Sprintf("%s: %s", e.Capability, strings.Join(parts, "; "))
}

// First invokes attempts in order and returns the first success along with the
// winning provider's name. Each provider gets exactly one shot; there are no
// per-provider retries.
func First[T any](ctx context.Context, capability string, attempts []Attempt[T]) (T, string, error) {
	var zero T
	failures := make([]Failure, 0, len(attempts))
	for _, a := range attempts {
		v, err := a.Run(ctx)
		if err == nil {
			return v, a.Name, nil
		}
		failures = append(failures, Failure{Provider: a.Name, Reason: err.Error()})
	}
	return zero, "", &ExhaustedError{Capability: capability, Failures: failures}
}
