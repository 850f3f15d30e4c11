package adapter

import (
	"errors"
	"fmt"
)

// ErrorKind tags an UpstreamError with the way the upstream call failed.
type ErrorKind int

const (
	// KindTransport means the provider answered with a non-success status and
	// no structured error payload.
	KindTransport ErrorKind = iota + 1

	// KindParse means the response body was not usable structured data.
	KindParse

	// KindAPI means the provider returned a structured error object.
	KindAPI
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// APIErrorDetail is the provider's error object, fields kept as sent.
// Param and Code hold the decoded JSON value (string, number or nil).
type APIErrorDetail struct {
	Message string
	Type    string
	Param   any
	Code    any
}

// UpstreamError describes a failed completion call. Kind selects which fields
// are meaningful:
//
//	KindTransport: StatusCode, Status, Body
//	KindParse:     Body, Err (what was wrong), StatusCode
//	KindAPI:       API, StatusCode, Body
type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int
	Status     string
	Body       string
	API        *APIErrorDetail
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("failed to fetch: %d %s\n%s", e.StatusCode, e.Status, e.Body)
	case KindParse:
		if e.Err != nil {
			return fmt.Sprintf("invalid JSON response (%v): %s", e.Err, e.Body)
		}
		return "invalid JSON response: " + e.Body
	case KindAPI:
		if e.API != nil {
			return e.API.Message
		}
		return "upstream API error"
	default:
		return "upstream error"
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// IsAPIError reports whether err carries a structured provider error.
func IsAPIError(err error) bool {
	upErr, ok := AsUpstreamError(err)
	return ok && upErr.Kind == KindAPI
}
