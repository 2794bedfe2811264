package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/auth"
	"github.com/sakif/real-estate-ai/internal/service"
)

// PropertyHandler serves the /property routes. All of them require auth.
type PropertyHandler struct {
	properties *service.PropertyService
	logger     *slog.Logger
}

func NewPropertyHandler(properties *service.PropertyService, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{properties: properties, logger: logger}
}

// features is checked by the validation gate, not by struct tags: any JSON
// object is accepted here.
type propertyQueryRequest struct {
	Query    string         `json:"query"`
	Features map[string]any `json:"features" validate:"required"`
}

// HandleQuery analyzes a property.
//
// HTTP: POST /property/query
// REQUEST BODY: {"query": "3 bed house in Colombo", "features": {"city": "Colombo", "asking_price": 35000000}}
func (h *PropertyHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated(auth.InvalidCredentialsMessage))
		return
	}

	var req propertyQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.properties.Analyze(r.Context(), userID, req.Query, req.Features)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHistory lists the caller's queries, newest first.
//
// HTTP: GET /property/history?limit=10
func (h *PropertyHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated(auth.InvalidCredentialsMessage))
		return
	}

	limit, err := service.ParseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.properties.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleResponse returns the stored analysis for one of the caller's queries.
//
// HTTP: GET /property/response/{query_id}
func (h *PropertyHandler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthenticated(auth.InvalidCredentialsMessage))
		return
	}

	queryID, err := pathID(r, "query_id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.properties.GetResponse(r.Context(), userID, queryID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, "Invalid "+name+": must be a positive integer")
	}
	return id, nil
}
