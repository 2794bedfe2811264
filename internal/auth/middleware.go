package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can construct a contextKey, so nothing else can read or
// shadow the user stored under it.
type contextKey string

const userKey contextKey = "user"

// InvalidCredentialsMessage is the single message every token failure
// produces. Whether the token was malformed, expired, or named a deleted
// user is never revealed.
const InvalidCredentialsMessage = "Invalid authentication credentials"

// UserLoader resolves a token subject to a live user row.
// repository.UserRepository satisfies it.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// RequireAuth enforces bearer-token authentication on protected routes.
//
// It reads "Authorization: Bearer <jwt>", validates the token, loads the
// user named by its subject and stores that user in the request context.
// Any failure stops the chain with 401 and a WWW-Authenticate challenge.
// A database failure while loading the user is a 500, not a 401.
func RequireAuth(tokens *TokenService, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			subject, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected bearer token", slog.String("error", err.Error()))
				writeUnauthorized(w)
				return
			}

			id, err := strconv.ParseInt(subject, 10, 64)
			if err != nil || id <= 0 {
				writeUnauthorized(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeUnauthorized(w)
					return
				}
				logger.Error("loading token subject",
					slog.Int64("userID", id),
					slog.String("error", err.Error()),
				)
				writeBody(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Exported so handler tests
// can build authenticated requests without a real token.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) on an
// unauthenticated request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext is a shorthand for UserFromContext(ctx).ID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeBody(w, http.StatusUnauthorized, "unauthorized", InvalidCredentialsMessage)
}

// writeBody mirrors the handler package's error shape. It lives here so the
// middleware doesn't import handler (handler imports auth).
func writeBody(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errType, "detail": detail})
}
