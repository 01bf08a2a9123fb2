package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"crewboard/middleware"
	"crewboard/models"
	"crewboard/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	users      *services.UserService
	reputation *services.ReputationService
	logger     *zap.SugaredLogger
}

func NewUserHandler(users *services.UserService, reputation *services.ReputationService, logger *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, reputation: reputation, logger: logger}
}

// Search handles GET /users/search?query=.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "query parameter is required")
		return
	}

	users, err := h.users.Search(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, users)
}

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

// Vote handles POST /users/{userID}/reputation.
func (h *UserHandler) Vote(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	targetID := chi.URLParam(r, "userID")

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json body")
		return
	}

	result, err := h.reputation.Vote(r.Context(), user.ID, targetID, models.VoteType(req.VoteType))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
