package omdb

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindTransport covers network failures, non-2xx responses and malformed bodies.
	KindTransport Kind = "transport"
	// KindNotFound is a well-formed response whose Response field is "False".
	KindNotFound Kind = "not-found"
	// KindCancelled means the request's context was cancelled. Never user-visible.
	KindCancelled Kind = "cancelled"
)

// User-facing messages for each failure kind.
const (
	MessageTransport = "Something went wrong while fetching movies"
	MessageNotFound  = "Movie not found"
)

// Sentinels for errors.Is.
var (
	ErrTransport = &Error{Kind: KindTransport}
	ErrNotFound  = &Error{Kind: KindNotFound}
	ErrCancelled = &Error{Kind: KindCancelled}
)

// Error is the typed failure returned by Client methods.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status when one was received
	Message string // API-supplied or default message
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("omdb %s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("omdb %s: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("omdb %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works
// regardless of status or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// UserMessage is the text shown to the user for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNotFound:
		return MessageNotFound
	case KindCancelled:
		return ""
	default:
		return MessageTransport
	}
}

// IsCancelled reports whether err is a cancellation, including a bare
// context.Canceled that did not pass through the client.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// UserMessage returns the user-visible text for any error returned by the client.
// Cancellation yields "".
func UserMessage(err error) string {
	if err == nil || IsCancelled(err) {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return MessageTransport
}

func transportError(status int, err error) *Error {
	return &Error{Kind: KindTransport, Status: status, Err: err}
}

func notFoundError(msg string) *Error {
	if msg == "" {
		msg = MessageNotFound
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

func cancelledError(err error) *Error {
	return &Error{Kind: KindCancelled, Err: err}
}
