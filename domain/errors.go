package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no task with the given id is owned by the caller.
	ErrNotFound = errors.New("task not found")
	// ErrDuplicateEmail is returned when registering an email that already has an account.
	ErrDuplicateEmail = errors.New("user already exists with this email")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned when a request carries no usable identity.
	ErrUnauthorized = errors.New("not authorized")
)

// FieldError describes one violated rule on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// UnauthorizedError wraps ErrUnauthorized with the reason a request was rejected.
type UnauthorizedError struct {
	Reason string
	Err    error
}

func (e *UnauthorizedError) Error() string {
	return "not authorized: " + e.Reason
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

// Unauthorized builds an UnauthorizedError.
func Unauthorized(reason string, err error) error {
	return &UnauthorizedError{Reason: reason, Err: err}
}
