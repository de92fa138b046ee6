package planner

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a terminal meal plan failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	// KindProviderOverloaded never leaves the generator; exhausted retries surface as
	// KindProviderUnavailable.
	KindProviderOverloaded  Kind = "provider_overloaded"
	KindProviderRateLimited Kind = "provider_rate_limited"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderFailed      Kind = "provider_failed"
	KindMalformedResponse   Kind = "malformed_response"
	KindShapeMismatch       Kind = "shape_mismatch"
)

// Error is the error type returned by Generator.Generate.
type Error struct {
	Kind    Kind
	Message string
	// Preview is the start of the offending model output, newlines escaped.
	Preview     string
	Diagnostics string
	Mismatches  []string
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Diagnostics != "" {
		fmt.Fprintf(&b, ": %s", e.Diagnostics)
	}
	if len(e.Mismatches) > 0 {
		fmt.Fprintf(&b, ": %s", joinReasons(e.Mismatches))
	}
	if e.Err != nil && e.Diagnostics == "" {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Preview != "" {
		fmt.Fprintf(&b, ". Preview: %s", e.Preview)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not a planner error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}
