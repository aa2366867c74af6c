// Package apperror defines the error taxonomy shared by the store, the
// services and the HTTP layer.
//
// There are four kinds, each a sentinel: ErrValidation, ErrUnauthorized,
// ErrNotFound and ErrConflict. The specific failures (ErrSessionExpired,
// ErrDuplicateEmail, ...) wrap their kind, so a handler only needs
// errors.Is(err, apperror.ErrUnauthorized) to pick the status code while a
// caller that cares can still match the specific sentinel.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrDuplicateEmail = fmt.Errorf("duplicate email: %w", ErrConflict)

	ErrUnauthenticated    = fmt.Errorf("unauthenticated: %w", ErrUnauthorized)
	ErrInvalidSession     = fmt.Errorf("invalid session: %w", ErrUnauthorized)
	ErrSessionExpired     = fmt.Errorf("session expired: %w", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
)

type AppError struct {
	Err     error  // sentinel
	Message string // short text safe to show a client
	Field   string // optional: input field at fault
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is used for missing rows and for rows owned by someone else;
// callers must not be able to tell the two apart.
func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func DuplicateEmail() *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: "Email already registered",
		Field:   "email",
	}
}

func Unauthenticated() *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: "Not authenticated"}
}

func InvalidSession() *AppError {
	return &AppError{Err: ErrInvalidSession, Message: "Invalid session"}
}

func SessionExpired() *AppError {
	return &AppError{Err: ErrSessionExpired, Message: "Session expired"}
}

// InvalidCredentials covers both an unknown email and a wrong password.
func InvalidCredentials() *AppError {
	return &AppError{Err: ErrInvalidCredentials, Message: "Invalid email or password"}
}
