// Package errs is the error taxonomy shared by the engine, the economy rules and the
// transports. Transports map a Kind to a status code; nothing else inspects messages.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindTransient     Kind = "transient"
	KindConfiguration Kind = "configuration"
	KindForbidden     Kind = "forbidden"
	KindInternal      Kind = "internal"
)

// Error carries a Kind, the operation that failed and a user-facing message.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind when the target has no message,
// so errors.Is(err, errs.ErrConflict) works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Op == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrTransient     = &Error{Kind: KindTransient}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrForbidden     = &Error{Kind: KindForbidden}
)

func Validation(op, msg string) error { return &Error{Kind: KindValidation, Op: op, Msg: msg} }
func NotFound(op, msg string) error { return &Error{Kind: KindNotFound, Op: op, Msg: msg} }
func Conflict(op, msg string) error { return &Error{Kind: KindConflict, Op: op, Msg: msg} }
func Forbidden(op, msg string) error { return &Error{Kind: KindForbidden, Op: op, Msg: msg} }

func Configuration(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: msg}
}

// Transient wraps a store or network failure.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindTransient, Op: op, Msg: "store unavailable", Err: err}
}

// KindOf reports the Kind of err; unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
