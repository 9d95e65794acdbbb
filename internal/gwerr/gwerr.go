// Package gwerr defines the error-kind taxonomy used across the gateway
// protocol engine and fulfillment router, so callers can dispatch on
// fatal-vs-recoverable without string matching.
package gwerr

import "fmt"

// Kind identifies one of the error categories from spec.md §7.
type Kind int

const (
	// Framing is a malformed start/end/escape sequence. Fatal.
	Framing Kind = iota
	// Crypto is a decrypt failure or bad key material. Fatal.
	Crypto
	// Protocol is a JSON parse failure or missing required auth field
	// while awaiting authentication. Fatal.
	Protocol
	// Schema is a validated message failing schema while authorized.
	// Logged, message dropped, connection retained.
	Schema
	// Timeout is a handshake or authorization deadline exceeded. Fatal.
	Timeout
	// BufferOverflow is a receive buffer exceeding its configured bound. Fatal.
	BufferOverflow
	// UnknownTopic is an unrecognized topic prefix. Logged, message dropped.
	UnknownTopic
	// InvalidFulfillmentRequest is an inbound intent body failing schema.
	InvalidFulfillmentRequest
	// DeviceOffline is an EXECUTE target with no reachable connection.
	DeviceOffline
	// HomeGraphError is an outbound Home Graph call failure.
	HomeGraphError
)

func (k Kind) String() string {
	switch k {
	case Framing:
		return "FRAMING_ERROR"
	case Crypto:
		return "CRYPTO_ERROR"
	case Protocol:
		return "PROTOCOL_ERROR"
	case Schema:
		return "SCHEMA_ERROR"
	case Timeout:
		return "TIMEOUT"
	case BufferOverflow:
		return "BUFFER_OVERFLOW"
	case UnknownTopic:
		return "UNKNOWN_TOPIC"
	case InvalidFulfillmentRequest:
		return "INVALID_FULFILLMENT_REQUEST"
	case DeviceOffline:
		return "DEVICE_OFFLINE"
	case HomeGraphError:
		return "HOMEGRAPH_ERROR"
	default:
		return "UNKNOWN_ERROR_KIND"
	}
}

// Fatal reports whether an error of this kind must terminate the
// connection it occurred on (§7 propagation policy).
func (k Kind) Fatal() bool {
	switch k {
	case Framing, Crypto, Protocol, Timeout, BufferOverflow:
		return true
	default:
		return false
	}
}

// Error wraps an underlying error with its Kind, so callers can use
// errors.As to recover both the classification and the cause.
type Error struct {
	Kind Kind
	Err  error
}

// New builds a new *Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds a new *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, enabling
// errors.Is(err, gwerr.New(gwerr.Timeout, nil)) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
