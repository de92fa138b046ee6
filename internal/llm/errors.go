package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// KindOverloaded is a transient "try again shortly" signal.
	KindOverloaded ErrorKind = "overloaded"
	// KindRateLimited is a quota or rate-limit signal. Callers should back off, not retry.
	KindRateLimited ErrorKind = "rate_limited"
	// KindOther is any other provider-side failure.
	KindOther ErrorKind = "other_provider_error"
)

// ProviderError is the tagged error every TextGenerator returns on failure.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf returns the provider error kind carried by err, or KindOther when err is not a
// ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// kindForHTTPStatus maps HTTP status codes shared by the supported providers.
func kindForHTTPStatus(code int) ErrorKind {
	switch code {
	case 429:
		return KindRateLimited
	case 503, 529:
		return KindOverloaded
	default:
		return KindOther
	}
}
