package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"stewardwell/internal/service"
	"stewardwell/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps service sentinel errors to HTTP statuses.
// Anything unmatched is a storage fault and surfaces as a 500 with the
// detail kept in the log.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, service.ErrNotAuthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not authorized"})
	case errors.Is(err, service.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "operation not allowed in the current state"})
	case errors.Is(err, service.ErrInvalidToken):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "invalid or already used invitation"})
	case errors.Is(err, service.ErrInvitationExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: "invitation expired"})
	case errors.Is(err, service.ErrLastManager):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "transfer the manager role before removing this member"})
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		respondWithError(w, http.StatusInternalServerError, "could not allocate a family code", "", err)
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "session invalid"})
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Unhandled service error", err)
	}
}
