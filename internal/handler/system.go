package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Version is reported by GET /.
const Version = "1.0.0"

// Pinger reports whether the database is reachable. *sqldb.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the unauthenticated status endpoints.
type SystemHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewSystemHandler(db Pinger, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{db: db, logger: logger}
}

// HandleRoot identifies the API.
//
// HTTP: GET /
func (h *SystemHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Real Estate AI API",
		"version": Version,
		"status":  "running",
	})
}

// HandleHealth is the liveness probe. A failed database ping turns it into
// a 503 so orchestrators stop routing traffic here.
//
// HTTP: GET /healthz
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"message": "Database unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Service is running",
	})
}
