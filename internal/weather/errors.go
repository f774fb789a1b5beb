package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the pipeline can produce.
type ErrorKind string

const (
	KindInvalidCoordinate  ErrorKind = "invalid_coordinate"
	KindTransportFailure   ErrorKind = "transport_failure"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindMissingAPIKey      ErrorKind = "missing_api_key"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
	KindUpstreamFailure    ErrorKind = "upstream_failure"
	KindGenericHTTPFailure ErrorKind = "generic_http_failure"
	KindEmptyResponse      ErrorKind = "empty_response"
	KindMalformedPayload   ErrorKind = "malformed_payload"
)

// Sentinels for errors.Is. Matching compares kinds only.
var (
	ErrInvalidCoordinate  = &Error{Kind: KindInvalidCoordinate}
	ErrTransportFailure   = &Error{Kind: KindTransportFailure}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
	ErrMissingAPIKey      = &Error{Kind: KindMissingAPIKey}
	ErrQuotaExceeded      = &Error{Kind: KindQuotaExceeded}
	ErrUpstreamFailure    = &Error{Kind: KindUpstreamFailure}
	ErrGenericHTTPFailure = &Error{Kind: KindGenericHTTPFailure}
	ErrEmptyResponse      = &Error{Kind: KindEmptyResponse}
	ErrMalformedPayload   = &Error{Kind: KindMalformedPayload}
)

// Error is the single error type crossing the fetch and decode boundaries.
type Error struct {
	Kind ErrorKind
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int
	// Detail is the provider's own error message when it sent one.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of err, or "" when err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// userMessage is the only place pipeline errors become user-facing text.
func userMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong while loading the weather."
	}

	var msg string
	switch e.Kind {
	case KindInvalidCoordinate:
		msg = "Your location is not available yet."
	case KindTransportFailure:
		msg = "The weather service could not be reached."
	case KindInvalidRequest:
		msg = "The weather request was rejected."
	case KindMissingAPIKey:
		msg = "The weather service API key is missing or invalid."
	case KindQuotaExceeded:
		msg = "The weather service quota has been exceeded."
	case KindUpstreamFailure:
		msg = "The weather service is currently unavailable."
	case KindEmptyResponse:
		msg = "The weather service returned no data."
	case KindMalformedPayload:
		msg = "The weather data could not be read."
	default:
		msg = "The weather service returned an unexpected response."
	}
	if e.Detail != "" {
		msg += " " + e.Detail
	}
	return msg
}
