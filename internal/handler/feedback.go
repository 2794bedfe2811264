package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/auth"
	"github.com/sakif/real-estate-ai/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
	logger   *slog.Logger
}

func NewFeedbackHandler(feedback *service.FeedbackService, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

// IsPositive is a pointer so that an explicit false passes "required".
type feedbackRequest struct {
	ResponseID int64 `json:"response_id" validate:"required,gt=0"`
	IsPositive *bool `json:"is_positive" validate:"required"`
}

// HandleSubmit records the caller's vote.
//
// HTTP: POST /feedback
// REQUEST BODY: {"response_id": 12, "is_positive": true}
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated(auth.InvalidCredentialsMessage))
		return
	}

	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	fb, err := h.feedback.Submit(r.Context(), userID, req.ResponseID, *req.IsPositive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// HandleStats aggregates the votes on a response.
//
// HTTP: GET /feedback/response/{id}
func (h *FeedbackHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated(auth.InvalidCredentialsMessage))
		return
	}

	responseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	stats, err := h.feedback.Stats(r.Context(), userID, responseID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
