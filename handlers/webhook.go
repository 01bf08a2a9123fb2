package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"crewboard/models"
	"crewboard/services"

	"go.uber.org/zap"
)

// WebhookHandler consumes identity-provider events and keeps the local user
// directory in sync. The endpoint is gated by a shared secret; payload
// signature schemes are the provider's concern, not modeled here.
type WebhookHandler struct {
	users  *services.UserService
	secret string
	logger *zap.SugaredLogger
}

func NewWebhookHandler(users *services.UserService, secret string, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{users: users, secret: secret, logger: logger}
}

type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		ImageURL    string `json:"image_url"`
	} `json:"data"`
}

// HandleIdentityEvent handles POST /webhooks/identity.
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondErrorMessage(w, h.logger, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook secret")
		return
	}

	var event identityEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json body")
		return
	}
	if event.Data.ID == "" {
		respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "missing user id")
		return
	}

	h.logger.Infow("identity event received", "type", event.Type, "user_id", event.Data.ID)

	switch event.Type {
	case "user.created":
		if event.Data.Email == "" || event.Data.Username == "" {
			respondErrorMessage(w, h.logger, http.StatusBadRequest, "VALIDATION_FAILED", "missing email or username")
			return
		}
		user := models.User{
			ID:          event.Data.ID,
			Username:    event.Data.Username,
			DisplayName: event.Data.DisplayName,
			Email:       event.Data.Email,
			Img:         event.Data.ImageURL,
		}
		if err := h.users.ApplyCreated(r.Context(), user); err != nil {
			respondError(w, h.logger, err)
			return
		}
		respondJSON(w, h.logger, http.StatusCreated, map[string]string{"status": "user created"})

	case "user.updated":
		user := models.User{
			ID:          event.Data.ID,
			Username:    event.Data.Username,
			DisplayName: event.Data.DisplayName,
			Email:       event.Data.Email,
			Img:         event.Data.ImageURL,
		}
		if err := h.users.ApplyUpdated(r.Context(), user); err != nil {
			respondError(w, h.logger, err)
			return
		}
		respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "user updated"})

	case "user.deleted":
		if err := h.users.ApplyDeleted(r.Context(), event.Data.ID); err != nil {
			respondError(w, h.logger, err)
			return
		}
		respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "user deleted"})

	default:
		// Unknown event types are acknowledged so the provider stops retrying.
		respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.secret)) == 1
}
