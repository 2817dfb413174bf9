package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced role, resource, user or assignment is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated indicates no identity is attached to the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the identity lacks the required rights.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified indicates a login attempt by an unverified account.
	ErrEmailNotVerified = errors.New("email not verified")
)

// DetailError pairs a sentinel error with a caller-facing detail message.
type DetailError struct {
	Kind    error
	Message string
}

func (e *DetailError) Error() string { return e.Message }

func (e *DetailError) Unwrap() error { return e.Kind }

// NotFoundf builds a not-found error with a response message.
func NotFoundf(format string, args ...any) error {
	return &DetailError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputf builds an invalid-input error with a response message.
func InvalidInputf(format string, args ...any) error {
	return &DetailError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a forbidden error with a response message.
func Forbiddenf(format string, args ...any) error {
	return &DetailError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}
