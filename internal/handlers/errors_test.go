package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"stewardwell/internal/service"
	"stewardwell/internal/validation"
)

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation error", validation.ValidationError{Field: "email", Message: "email is invalid"}, http.StatusBadRequest},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("family: %w", service.ErrNotFound), http.StatusNotFound},
		{"not authorized", service.ErrNotAuthorized, http.StatusForbidden},
		{"invalid state", service.ErrInvalidState, http.StatusConflict},
		{"invalid token", service.ErrInvalidToken, http.StatusNotFound},
		{"invitation expired", service.ErrInvitationExpired, http.StatusGone},
		{"last manager", service.ErrLastManager, http.StatusConflict},
		{"code generation exhausted", service.ErrCodeGenerationExhausted, http.StatusInternalServerError},
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"session not found", service.ErrSessionNotFound, http.StatusUnauthorized},
		{"session expired", service.ErrSessionExpired, http.StatusUnauthorized},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}

			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}
			if body.Error == "" {
				t.Error("Expected a non-empty error message")
			}
		})
	}
}

func TestRespondWithServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, errors.New("pq: connection refused"))

	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("Expected generic message, got %q", body.Error)
	}
}
