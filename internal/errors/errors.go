// Package errors defines the typed failure taxonomy for the fulfillment
// client. Every failure surfaced by the core is an *Error carrying a Kind,
// letting callers branch on the failure class instead of matching message
// strings.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// Kind discriminates the failure class of an Error.
type Kind string

const (
	// KindConfiguration marks a required credential or config value missing
	// before any network activity. Fatal at construction time.
	KindConfiguration Kind = "configuration"
	// KindTransport marks a connection, DNS, or timeout failure at the
	// network layer.
	KindTransport Kind = "transport"
	// KindAuth marks a reachable token endpoint that returned a non-200
	// status, malformed JSON, or an incomplete token payload.
	KindAuth Kind = "auth"
	// KindEncoding marks a request body that could not be serialized to JSON.
	KindEncoding Kind = "encoding"
	// KindAPI marks a signed API call that reached the server but returned a
	// non-2xx status.
	KindAPI Kind = "api"
)

// Error represents a structured application error.
type Error struct {
	// Kind is the failure class.
	Kind Kind `json:"kind"`
	// StatusCode is the upstream HTTP status for API errors (zero otherwise).
	StatusCode int `json:"status_code,omitempty"`
	// Message is the user-facing error message.
	Message string `json:"message"`
	// Err is the underlying error (not marshaled to JSON).
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ToJSON returns the JSON byte representation of the error.
func (e *Error) ToJSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// New creates a new Error.
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewConfiguration creates a configuration error for a missing required field.
func NewConfiguration(message string) *Error {
	return New(KindConfiguration, message, nil)
}

// NewTransport creates a transport error wrapping the underlying network failure.
func NewTransport(message string, err error) *Error {
	return New(KindTransport, message, err)
}

// NewAuth creates an auth error with the message reported by the token endpoint.
func NewAuth(message string) *Error {
	return New(KindAuth, message, nil)
}

// NewEncoding creates an encoding error for an unserializable request body.
func NewEncoding(message string, err error) *Error {
	return New(KindEncoding, message, err)
}

// NewAPI creates an API error for a non-2xx response from the signed endpoint.
func NewAPI(statusCode int, message string) *Error {
	return &Error{
		Kind:       KindAPI,
		StatusCode: statusCode,
		Message:    message,
	}
}

// KindOf reports the Kind of err when it is (or wraps) an *Error, and an
// empty Kind otherwise.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
