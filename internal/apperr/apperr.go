// Package apperr defines the error taxonomy shared by the lifecycle
// services: validation (bad input), policy (state machine precondition),
// not-found (missing or invisible row), dependency (collaborator failure).
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindPolicy
	KindNotFound
	KindDependency
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Policy(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPolicy, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf reports the kind of err, or (0, false) when err is not an
// apperr.Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsValidation(err error) bool { k, ok := KindOf(err); return ok && k == KindValidation }
func IsPolicy(err error) bool     { k, ok := KindOf(err); return ok && k == KindPolicy }
func IsNotFound(err error) bool   { k, ok := KindOf(err); return ok && k == KindNotFound }
func IsDependency(err error) bool { k, ok := KindOf(err); return ok && k == KindDependency }
