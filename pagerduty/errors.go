package pagerduty

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors. The typed errors below match these with errors.Is.
var (
	// ErrInvalidConfig indicates invalid connection configuration
	ErrInvalidConfig = errors.New("invalid pagerduty configuration")
	// ErrNotFound indicates a 404 response
	ErrNotFound = errors.New("resource not found")
	// ErrAPI indicates a non-successful response status
	ErrAPI = errors.New("pagerduty API error")
	// ErrDecode indicates a response body that could not be decoded
	ErrDecode = errors.New("invalid response body")
	// ErrInput indicates malformed caller input
	ErrInput = errors.New("invalid input")
)

// ErrorKind classifies errors returned by a Connection.
type ErrorKind int

const (
	// KindUnknown covers transport failures and anything not raised by the pipeline
	KindUnknown ErrorKind = iota
	// KindNotFound is a 404 response
	KindNotFound
	// KindAPI is any other non-successful status
	KindAPI
	// KindDecode is an undecodable response body
	KindDecode
	// KindInput is malformed caller input
	KindInput
)

// String returns the string representation of an ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAPI:
		return "api"
	case KindDecode:
		return "decode"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// KindOf reports which kind of error err is.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAPI):
		return KindAPI
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrInput):
		return KindInput
	default:
		return KindUnknown
	}
}

// NotFoundError is returned for a 404 response.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// APIError is returned for any status outside 200, 201 and 204 other than 404.
type APIError struct {
	URL        string
	StatusCode int
	// Payload is the "error" field of the response body, nil when absent
	Payload Node
	// Body is the raw response body
	Body string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("got HTTP %d back for %s", e.StatusCode, e.URL)
	if e.Payload != nil {
		if b, err := json.Marshal(e.Payload); err == nil {
			msg += ": " + string(b)
		}
	}
	return msg
}

// Is matches ErrAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited checks if the error is a rate limit rejection
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Message returns the message of the error payload, if it has one.
func (e *APIError) Message() string {
	if obj, ok := e.Payload.(Object); ok {
		msg, _ := obj.GetString("message")
		return msg
	}
	return ""
}

// DecodeError is returned when a successful response carries a body that is
// not valid JSON, or a timestamp field that cannot be parsed.
type DecodeError struct {
	URL string
	// Field is the timestamp field that failed to parse, empty for body errors
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("failed to parse %s in response from %s: %v", e.Field, e.URL, e.Err)
	}
	return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// InputError is returned for malformed caller input, such as a non-numeric
// page, or a document that is not an object.
type InputError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

// Is matches ErrInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}
