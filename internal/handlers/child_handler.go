package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"stewardwell/internal/models"
	"stewardwell/internal/security"
	"stewardwell/internal/service"
)

// ChildHandler handles child profile management and the kid login flow
type ChildHandler struct {
	childService *service.ChildService
	childTokens  *security.ChildTokenIssuer
	tokenTTL     time.Duration
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService, childTokens *security.ChildTokenIssuer, tokenTTL time.Duration) *ChildHandler {
	return &ChildHandler{
		childService: childService,
		childTokens:  childTokens,
		tokenTTL:     tokenTTL,
	}
}

type childView struct {
	ID        int64  `json:"id"`
	FamilyID  int64  `json:"family_id"`
	Name      string `json:"name"`
	Birthdate string `json:"birthdate,omitempty"`
	Age       int    `json:"age,omitempty"`
	CreatedAt string `json:"created_at"`
}

func newChildView(c *models.Child) childView {
	v := childView{
		ID:        c.ID,
		FamilyID:  c.FamilyID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.Birthdate != nil {
		v.Birthdate = c.Birthdate.Format("2006-01-02")
		v.Age = c.Age(time.Now())
	}
	return v
}

func parseBirthdate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// CreateChild handles POST /api/families/{id}/children
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		PIN       string `json:"pin"`
		Birthdate string `json:"birthdate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	birthdate, ok := parseBirthdate(req.Birthdate)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "birthdate must be YYYY-MM-DD"})
		return
	}

	child, err := h.childService.CreateChild(familyID, user.ID, req.Name, req.PIN, birthdate)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newChildView(child))
}

// ListChildren handles GET /api/families/{id}/children
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	children, err := h.childService.GetFamilyChildren(familyID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	views := make([]childView, 0, len(children))
	for i := range children {
		views = append(views, newChildView(&children[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// UpdateChild handles PATCH /api/children/{id}
func (h *ChildHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child id"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		PIN       string `json:"pin"`
		Birthdate string `json:"birthdate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	birthdate, ok := parseBirthdate(req.Birthdate)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "birthdate must be YYYY-MM-DD"})
		return
	}

	if req.Name != "" {
		if err := h.childService.UpdateChild(childID, user.ID, req.Name, birthdate); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}
	if req.PIN != "" {
		if err := h.childService.UpdateChildPIN(childID, user.ID, req.PIN); err != nil {
			respondWithServiceError(w, err)
			return
		}
	}

	child, err := h.childService.GetChild(childID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newChildView(child))
}

// DeleteChild handles DELETE /api/children/{id}
func (h *ChildHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	childID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid child id"})
		return
	}

	if err := h.childService.DeleteChild(childID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ChildLogin handles POST /api/children/login. A successful PIN check
// issues a signed child token; no server-side session is stored.
func (h *ChildHandler) ChildLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID  int64  `json:"child_id"`
		FamilyID int64  `json:"family_id"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	child, err := h.childService.VerifyChildPIN(req.ChildID, req.FamilyID, req.PIN)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	token, err := h.childTokens.Issue(child.ID, child.FamilyID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal server error", "Child token issue failed", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.ChildTokenCookieName, token, time.Now().Add(h.tokenTTL)))
	writeJSON(w, http.StatusOK, newChildView(child))
}

// ChildLogout handles POST /api/children/logout
func (h *ChildHandler) ChildLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r, security.ChildTokenCookieName))
	writeJSON(w, http.StatusNoContent, nil)
}

// ChildMe handles GET /api/children/me for a logged-in child
func (h *ChildHandler) ChildMe(w http.ResponseWriter, r *http.Request) {
	claims := GetChildFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "child login required"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"child_id":  claims.ChildID,
		"family_id": claims.FamilyID,
	})
}
