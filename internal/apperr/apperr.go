// Package apperr defines the failure values returned across the client.
// Every gateway, synchronizer and export operation reports failures as an
// *Error so callers can branch on Kind instead of matching strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNetwork            Kind = "network"
	KindServer             Kind = "server"
	KindUnexpectedResponse Kind = "unexpected_response"
	KindStorage            Kind = "storage"
)

// NetworkMessage is shown for every transport failure.
const NetworkMessage = "Network error. Please check your connection and try again."

// Error is a structured failure. Message is safe to show to a user.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status for server errors, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad input. No network call has been made.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Network wraps a transport failure or timeout.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: NetworkMessage, Err: err}
}

// Server reports a non-2xx reply.
func Server(status int, msg string) *Error {
	return &Error{Kind: KindServer, Message: msg, Status: status}
}

// Unexpected reports a reply the client could not interpret.
func Unexpected(msg string, err error) *Error {
	return &Error{Kind: KindUnexpectedResponse, Message: msg, Err: err}
}

// Storage wraps a local store failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
