package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"crewboard/services"

	"go.uber.org/zap"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

func respondJSON(w http.ResponseWriter, logger *zap.SugaredLogger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorw("failed to write json response", "error", err)
	}
}

func respondErrorMessage(w http.ResponseWriter, logger *zap.SugaredLogger, status int, code, message string) {
	respondJSON(w, logger, status, ErrorResponse{Error: APIError{Code: code, Message: message}})
}

// respondError translates service errors into the error envelope. Unknown
// errors are logged and reported as a 500 without leaking detail.
func respondError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "unexpected error"

	switch {
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
		message = err.Error()
	case errors.Is(err, services.ErrNotLeader),
		errors.Is(err, services.ErrNotEligible):
		status, code = http.StatusForbidden, "FORBIDDEN"
		message = err.Error()
	case errors.Is(err, services.ErrInvalidTeamName),
		errors.Is(err, services.ErrTooManyInvitees),
		errors.Is(err, services.ErrInvalidVoteType),
		errors.Is(err, services.ErrSelfVote),
		errors.Is(err, services.ErrInvalidCursor):
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
		message = err.Error()
	case errors.Is(err, services.ErrTeamNameTaken),
		errors.Is(err, services.ErrTeamFull):
		status, code = http.StatusConflict, "CONFLICT"
		message = err.Error()
	case errors.Is(err, services.ErrAlreadyOnTeam),
		errors.Is(err, services.ErrAlreadyInTeam),
		errors.Is(err, services.ErrAlreadyInAnother):
		status, code = http.StatusBadRequest, "CONFLICT"
		message = err.Error()
	case errors.Is(err, services.ErrHourlyCooldown),
		errors.Is(err, services.ErrDailyCooldown):
		status, code = http.StatusTooManyRequests, "COOLDOWN_ACTIVE"
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.Errorw("internal error", "error", err)
	}

	respondErrorMessage(w, logger, status, code, message)
}
