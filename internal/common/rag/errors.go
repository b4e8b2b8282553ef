package rag

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Ask call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindServer     Kind = "server"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation = errors.New("rag: validation error")
	ErrTimeout    = errors.New("rag: timeout")
	ErrConnection = errors.New("rag: connection error")
	ErrServer     = errors.New("rag: server error")

	// ErrCanceled wraps the caller's context error when Ask is abandoned.
	ErrCanceled = errors.New("rag: request canceled")
)

// Error is the classified failure returned by Ask. Message is meant for end users.
type Error struct {
	Kind       Kind
	Message    string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// Transient reports whether retrying the identical request may succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnection
}

// IsTransient reports whether err is a transient *Error.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient()
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func timeoutError(baseURL, endpoint string, cause error) *Error {
	return &Error{
		Kind: KindTimeout,
		Message: fmt.Sprintf("Request to %s timed out. The API may be starting up "+
			"(a cold start can take 30-60 seconds). Please try again.", baseURL),
		Endpoint: endpoint,
		Err:      cause,
	}
}

func connectionError(baseURL, endpoint string, cause error) *Error {
	return &Error{
		Kind: KindConnection,
		Message: fmt.Sprintf("Failed to connect to API at %s. The service may be starting up. "+
			"Please wait a moment and try again.", baseURL),
		Endpoint: endpoint,
		Err:      cause,
	}
}

func serverError(endpoint string, status int, detail string) *Error {
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: KindServer, Message: msg, Endpoint: endpoint, StatusCode: status}
}
