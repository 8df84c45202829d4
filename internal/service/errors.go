package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure; the API layer maps kinds to status codes
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindForbidden      Kind = "forbidden"
	KindUnavailable    Kind = "unavailable"
	KindInternal       Kind = "internal"
)

// Error is a classified failure. Message is safe to show to the caller; Err is not.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a service error, or KindInternal for anything else
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

func validationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func notFoundError(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func conflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func forbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: message}
}

func unavailableError(code string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: "service temporarily unavailable, please retry", Err: err}
}

func internalError(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: "something went wrong", Err: err}
}
