// Package handler is the HTTP layer: it decodes requests, calls a service
// and encodes the result. It is the only package that knows about status
// codes.
package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error
// response has the same shape:
//
//	{"error": "not_found", "detail": "Query not found"}
//	{"error": "validation_error", "detail": "Invalid features: ...", "errors": ["...", "..."]}
//
// "detail" is the field clients of the previous API version read.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/real-estate-ai/internal/apperror"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string   `json:"error"`            // machine-readable type, e.g. "not_found"
	Detail string   `json:"detail"`           // human-readable message
	Errors []string `json:"errors,omitempty"` // individual problems, when there are several
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; once the body starts they are frozen.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its status code.
//
// ERROR MAPPING (done once, here):
//
//	ErrValidation, ErrConflict → 400
//	ErrUnauthenticated         → 401 + WWW-Authenticate: Bearer
//	ErrNotFound                → 404
//	anything else              → 500, logged, generic message
//
// Conflicts are 400 rather than 409 because existing clients expect it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errType := 0, ""
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status, errType = http.StatusBadRequest, "conflict"
		case errors.Is(err, apperror.ErrUnauthenticated):
			w.Header().Set("WWW-Authenticate", "Bearer")
			status, errType = http.StatusUnauthorized, "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status, errType = http.StatusNotFound, "not_found"
		}
		if status != 0 {
			writeJSON(w, status, ErrorResponse{Error: errType, Detail: appErr.Message, Errors: appErr.Details})
			return
		}
	}

	// Never expose the raw error: it may carry SQL or file paths.
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:  "internal_error",
		Detail: "Internal server error",
	})
}

// validate checks request structs against their `validate` tags. Field names
// in messages are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads one JSON object from the body into dst and validates it.
// Every failure is an apperror validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", "Request body too large")
		}
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	if dec.More() {
		return apperror.ValidationFailed("", "Request body must contain a single JSON object")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperror.ValidationFailed("", "Invalid request body")
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperror.ValidationErrors(strings.Join(msgs, "; "), msgs)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Missing required field: " + fe.Field()
	case "email":
		return fmt.Sprintf("Invalid %s: must be a valid email address", fe.Field())
	case "gt":
		return fmt.Sprintf("Invalid %s: must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Invalid %s: must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Invalid %s", fe.Field())
	}
}
