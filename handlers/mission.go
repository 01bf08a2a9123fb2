package handlers

import (
	"net/http"

	"crewboard/middleware"
	"crewboard/services"

	"go.uber.org/zap"
)

type MissionHandler struct {
	missions *services.MissionService
	logger   *zap.SugaredLogger
}

func NewMissionHandler(missions *services.MissionService, logger *zap.SugaredLogger) *MissionHandler {
	return &MissionHandler{missions: missions, logger: logger}
}

// Status handles GET /users/me/mission-status.
func (h *MissionHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	status, err := h.missions.Status(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, status)
}

// Points handles GET /users/me/points.
func (h *MissionHandler) Points(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	status, err := h.missions.Status(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]int{"points": status.Points})
}

// ClaimHourly handles POST /missions/claim/hourly.
func (h *MissionHandler) ClaimHourly(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	result, err := h.missions.ClaimHourly(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// ClaimDaily handles POST /missions/claim/daily.
func (h *MissionHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	result, err := h.missions.ClaimDaily(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
