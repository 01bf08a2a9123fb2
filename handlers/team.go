package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crewboard/middleware"
	"crewboard/models"
	"crewboard/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teams  *services.TeamService
	logger *zap.SugaredLogger
}

func NewTeamHandler(teams *services.TeamService, logger *zap.SugaredLogger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

type teamMemberDTO struct {
	ID       string              `json:"id"`
	UserID   string              `json:"user_id"`
	User     *models.UserSummary `json:"user,omitempty"`
	JoinedAt time.Time           `json:"joined_at"`
}

type teamResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	LeaderID      string              `json:"leader_id"`
	Leader        *models.UserSummary `json:"leader,omitempty"`
	IsWhitelisted bool                `json:"is_whitelisted"`
	MemberCount   int                 `json:"member_count"`
	Members       []teamMemberDTO     `json:"members"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type invitationDTO struct {
	ID        string                  `json:"id"`
	TeamID    string                  `json:"team_id"`
	TeamName  string                  `json:"team_name,omitempty"`
	Status    models.InvitationStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

func newTeamResponse(team *models.Team) teamResponse {
	members := make([]teamMemberDTO, len(team.Members))
	for i, m := range team.Members {
		dto := teamMemberDTO{ID: m.ID, UserID: m.UserID, JoinedAt: m.CreatedAt}
		if m.User != nil {
			summary := m.User.Summary()
			dto.User = &summary
		}
		members[i] = dto
	}

	resp := teamResponse{
		ID:            team.ID,
		Name:          team.Name,
		LeaderID:      team.LeaderID,
		IsWhitelisted: team.IsWhitelisted,
		MemberCount:   len(team.Members),
		Members:       members,
		CreatedAt:     team.CreatedAt,
		UpdatedAt:     team.UpdatedAt,
	}
	if team.Leader != nil {
		summary := team.Leader.Summary()
		resp.Leader = &summary
	}
	return resp
}

func newInvitationDTO(inv models.TeamInvitation) invitationDTO {
	dto := invitationDTO{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt,
	}
	if inv.Team != nil {
		dto.TeamName = inv.Team.Name
	}
	return dto
}

type createTeamRequest struct {
	Name             string   `json:"name"`
	InvitedUsernames []string `json:"invited_usernames"`
}

type editTeamRequest struct {
	Name string `json:"name"`
	// Absent and empty mean different things: absent leaves pending
	// invitations alone, empty retracts them all.
	InvitedUsernames *[]string `json:"invited_usernames"`
	IsWhitelisted    *bool     `json:"is_whitelisted"`
}

type teamMutationResponse struct {
	Team             teamResponse `json:"team"`
	SkippedUsernames []string     `json:"skipped_usernames,omitempty"`
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json body")
		return
	}

	team, skipped, err := h.teams.Create(r.Context(), user.ID, req.Name, req.InvitedUsernames)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, teamMutationResponse{
		Team:             newTeamResponse(team),
		SkippedUsernames: skipped,
	})
}

// Edit handles PUT /teams/{teamID}.
func (h *TeamHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")

	var req editTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json body")
		return
	}

	team, skipped, err := h.teams.Edit(r.Context(), user.ID, teamID, req.Name, req.InvitedUsernames, req.IsWhitelisted)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, teamMutationResponse{
		Team:             newTeamResponse(team),
		SkippedUsernames: skipped,
	})
}

// Join handles POST /teams/{teamID}/join.
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")

	member, err := h.teams.Join(r.Context(), user.ID, user.Username, teamID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"membership": teamMemberDTO{ID: member.ID, UserID: member.UserID, JoinedAt: member.CreatedAt},
		"team_id":    member.TeamID,
	})
}

// Delete handles DELETE /teams/{teamID}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")

	if err := h.teams.Delete(r.Context(), user.ID, teamID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusNoContent, nil)
}

// List handles GET /teams?cursor&limit.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid limit parameter")
			return
		}
		limit = parsed
	}

	teams, nextCursor, err := h.teams.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	responses := make([]teamResponse, len(teams))
	for i := range teams {
		responses[i] = newTeamResponse(&teams[i])
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"teams":       responses,
		"next_cursor": nextCursor,
	})
}

// Search handles GET /teams/search?q=.
func (h *TeamHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "search query parameter 'q' is required")
		return
	}

	teams, err := h.teams.Search(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	responses := make([]teamResponse, len(teams))
	for i := range teams {
		responses[i] = newTeamResponse(&teams[i])
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]any{"teams": responses})
}

// MyTeam handles GET /users/me/team.
func (h *TeamHandler) MyTeam(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	result, err := h.teams.MyTeam(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	invitations := make([]invitationDTO, len(result.PendingInvitations))
	for i, inv := range result.PendingInvitations {
		invitations[i] = newInvitationDTO(inv)
	}

	resp := map[string]any{
		"team":                nil,
		"is_leader":           result.IsLeader,
		"pending_invitations": invitations,
	}
	if result.Team != nil {
		resp["team"] = newTeamResponse(result.Team)
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

type whitelistRequest struct {
	Whitelist []string `json:"whitelist"`
}

// UpdateWhitelist handles PUT /teams/{teamID}/whitelist.
func (h *TeamHandler) UpdateWhitelist(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")

	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json body")
		return
	}

	team, err := h.teams.UpdateWhitelist(r.Context(), user.ID, teamID, req.Whitelist)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	usernames, err := h.teams.WhitelistUsernames(r.Context(), teamID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]any{
		"team":      newTeamResponse(team),
		"whitelist": usernames,
	})
}
