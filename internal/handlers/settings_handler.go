package handlers

import (
	"encoding/json"
	"net/http"

	"stewardwell/internal/service"
)

// SettingsHandler handles per-family settings requests
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings handles GET /api/families/{id}/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	settings, err := h.settingsService.GetSettings(familyID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/families/{id}/settings. The body is a
// flat key/value map; each entry upserts.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	for key, value := range req {
		if err := h.settingsService.SetSetting(familyID, user.ID, key, value); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}

	settings, err := h.settingsService.GetSettings(familyID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
