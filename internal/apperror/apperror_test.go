package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// One slice of cases, one loop, one assertion. Adding a case is one struct literal.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("query", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFoundMessage wraps ErrNotFound",
			err:       NotFoundMessage("Response not found"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("password", "too short"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ValidationErrors wraps ErrValidation",
			err:       ValidationErrors("Invalid features", []string{"a", "b"}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ConflictMessage wraps ErrConflict",
			err:       ConflictMessage("already exists"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("bad token"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Internal wraps ErrInternal",
			err:       Internal(errors.New("disk full")),
			target:    ErrInternal,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("service/property: %w", NotFoundMessage("Query not found")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("query", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthenticated does NOT match ErrNotFound",
			err:       Unauthenticated("bad token"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("query", "42"),
			wantMessage: "query not found with id 42",
		},
		{
			name:        "NotFoundMessage keeps wording",
			err:         NotFoundMessage("No response found for this query"),
			wantMessage: "No response found for this query",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "7"),
			wantMessage: "user conflict with id 7",
		},
		{
			name:        "Internal never exposes the cause",
			err:         Internal(errors.New("sqldb: connection refused at 10.0.0.3")),
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("query", "42")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)
	if !errors.Is(err, cause) {
		t.Error("Internal() should keep the cause reachable through errors.Is")
	}
}

func TestValidationErrorsDetails(t *testing.T) {
	err := ValidationErrors("Invalid features: a; b", []string{"a", "b"})
	if len(err.Details) != 2 {
		t.Fatalf("Details = %v, want 2 entries", err.Details)
	}
	if err.Details[1] != "b" {
		t.Errorf("Details[1] = %q, want %q", err.Details[1], "b")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
