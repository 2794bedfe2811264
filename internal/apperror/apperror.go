// Package apperror defines the finite set of domain errors the service layer
// returns. The HTTP layer maps each sentinel to a status code exactly once
// (see handler.writeError); nothing below the handler knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInternal        = errors.New("internal error")
)

type AppError struct {
	Err     error    // sentinel, matched with errors.Is
	Message string   // Human-readable error message, safe to show the client
	Field   string   // Optional: field causing the error
	Details []string // Optional: every individual problem, for multi-field validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, for endpoints
// whose clients depend on a fixed wording ("Query not found").
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationErrors reports several problems at once. Message is the summary
// line; details lists each problem individually.
func ValidationErrors(message string, details []string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Details: details,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a caller-chosen message.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthenticated means the caller could not be identified: bad credentials,
// a bad token, or a token whose subject no longer exists.
// HTTP handlers map this to 401 with a WWW-Authenticate challenge.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Internal marks an unexpected failure. cause is kept for logging only;
// the client always sees a generic message.
func Internal(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrInternal, cause),
		Message: "Internal server error",
	}
}
