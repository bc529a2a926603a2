package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	// KindGeneric covers local failures that fit no other kind, such as
	// encoding a request or decoding a response.
	KindGeneric ErrorKind = iota
	// KindValidation is a rejected input: local validation or HTTP 400.
	KindValidation
	// KindAuthentication is HTTP 401.
	KindAuthentication
	// KindRateLimit is HTTP 429.
	KindRateLimit
	// KindAPI is any other non-2xx response.
	KindAPI
	// KindNetwork is a request that never got a response.
	KindNetwork
)

// String returns the kind name used in logs and telemetry labels.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindAPI:
		return "api"
	case KindNetwork:
		return "network"
	default:
		return "generic"
	}
}

// Sentinel errors, one per kind. Every *Error matches the sentinel of its
// kind through errors.Is.
var (
	ErrGeneric        = errors.New("generic error")
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrRateLimit      = errors.New("rate limit error")
	ErrAPI            = errors.New("api error")
	ErrNetwork        = errors.New("network error")
)

// Sentinel returns the sentinel error for the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindRateLimit:
		return ErrRateLimit
	case KindAPI:
		return ErrAPI
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrGeneric
	}
}

// Error is the single error type returned by the client.
type Error struct {
	Kind ErrorKind

	// Message is the vendor's error.message when present, otherwise a
	// transport or local message.
	Message string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Code is the vendor error code or type, or a local code such as "decode_error".
	Code string

	// RequestID is the server request id, or the client request id when the
	// server did not send one.
	RequestID string

	// Data is the raw response body, kept for diagnostics.
	Data []byte

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status=%d", e.StatusCode)
		if e.Code != "" {
			msg += ", code=" + e.Code
		}
		if e.RequestID != "" {
			msg += ", request_id=" + e.RequestID
		}
		msg += ")"
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Err}
}

// KindOf returns the kind of err, or KindGeneric if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// NewValidationError returns a validation error raised before any network call.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewGenericError wraps an unexpected local failure.
func NewGenericError(err error) *Error {
	return &Error{Kind: KindGeneric, Message: err.Error(), Err: err}
}

// Validation messages for the context buffer.
const (
	msgInvalidContextEntry = `Context entry must be an object with role ("system", "user", or "assistant") and content properties`
	msgInvalidContextBatch = "Input must be an array of context entries"
)
