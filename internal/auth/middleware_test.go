package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
)

type fakeUserLoader struct {
	users map[int64]*model.User
	err   error
}

func (f *fakeUserLoader) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return u, nil
}

func newProtected(t *testing.T, loader UserLoader) (http.Handler, *TokenService) {
	t.Helper()
	ts := newTestTokenService(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("protected handler ran without a user in context")
			return
		}
		w.Header().Set("X-User", u.Username)
		w.WriteHeader(http.StatusNoContent)
	})
	return RequireAuth(ts, loader, logger)(next), ts
}

func TestRequireAuth(t *testing.T) {
	loader := &fakeUserLoader{users: map[int64]*model.User{
		7: {ID: 7, Username: "nimal", IsActive: true},
	}}
	h, ts := newProtected(t, loader)

	valid, _ := ts.Generate("7")
	expired, _ := ts.GenerateWithDuration("7", -time.Minute)
	ghost, _ := ts.Generate("99")
	nonNumeric, _ := ts.Generate("abc")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"tampered", "Bearer " + valid[:len(valid)-2] + "zz", http.StatusUnauthorized},
		{"unknown subject", "Bearer " + ghost, http.StatusUnauthorized},
		{"non-numeric subject", "Bearer " + nonNumeric, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
				assert.Contains(t, rr.Body.String(), InvalidCredentialsMessage)
			} else {
				assert.Equal(t, "nimal", rr.Header().Get("X-User"))
			}
		})
	}
}

func TestRequireAuth_LoaderFailureIs500(t *testing.T) {
	h, ts := newProtected(t, &fakeUserLoader{err: errors.New("database is locked")})
	token, _ := ts.Generate("7")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "database is locked")
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUser(context.Background(), &model.User{ID: 3}))
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}
