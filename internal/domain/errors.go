package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures of the trip optimization core.
// Retry, failover and fallback decisions are driven by the kind, never by message text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Input problems: bad coordinates, empty destination set, missing start.
	KindValidation
	// A query resolved to zero candidates.
	KindGeocodeMiss
	// An optimization is already running for the trip plan.
	KindBusy

	// Transient, retried within a provider.
	KindTimeout
	KindNetwork
	KindServerError
	KindRateLimited
	KindBadResponse

	// Authoritative geographic answers from a provider, never retried.
	KindNoRoute
	KindNoSegment
	KindInvalidInput
	KindTooBig

	// Aggregate outcomes after every provider was exhausted.
	KindOffline
	KindProvidersUnavailable
)

var kindNames = map[ErrorKind]string{
	KindUnknown:              "unknown",
	KindValidation:           "validation",
	KindGeocodeMiss:          "geocode_miss",
	KindBusy:                 "busy",
	KindTimeout:              "timeout",
	KindNetwork:              "network",
	KindServerError:          "server_error",
	KindRateLimited:          "rate_limited",
	KindBadResponse:          "bad_response",
	KindNoRoute:              "no_route",
	KindNoSegment:            "no_segment",
	KindInvalidInput:         "invalid_input",
	KindTooBig:               "too_big",
	KindOffline:              "offline",
	KindProvidersUnavailable: "providers_unavailable",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether another attempt on the same provider may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindNetwork, KindServerError, KindRateLimited, KindBadResponse:
		return true
	}
	return false
}

// Authoritative reports whether the provider stated a geographic fact
// that retrying cannot change.
func (k ErrorKind) Authoritative() bool {
	switch k {
	case KindNoRoute, KindNoSegment, KindInvalidInput, KindTooBig:
		return true
	}
	return false
}

// NetworkClass reports whether the failure points at connectivity rather than the provider.
func (k ErrorKind) NetworkClass() bool {
	switch k {
	case KindTimeout, KindNetwork, KindOffline:
		return true
	}
	return false
}

// Error is the structured failure carried through the core.
type Error struct {
	Kind       ErrorKind
	Provider   string
	Attempt    int
	Query      string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Provider != "" {
		fmt.Fprintf(&b, " provider=%s attempt=%d", e.Provider, e.Attempt)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Query != "" {
		fmt.Fprintf(&b, " query=%q", e.Query)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
