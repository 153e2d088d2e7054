package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"stewardwell/internal/models"
	"stewardwell/internal/service"
)

// FamilyHandler handles family and membership HTTP requests
type FamilyHandler struct {
	familyService     *service.FamilyService
	membershipService *service.MembershipService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, membershipService *service.MembershipService) *FamilyHandler {
	return &FamilyHandler{
		familyService:     familyService,
		membershipService: membershipService,
	}
}

type familyView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	FamilyCode string `json:"family_code"`
	CreatedAt  string `json:"created_at"`
}

type membershipView struct {
	ID                int64  `json:"id"`
	FamilyID          int64  `json:"family_id"`
	UserID            *int64 `json:"user_id,omitempty"`
	Role              string `json:"role"`
	Status            string `json:"status"`
	MemberName        string `json:"member_name,omitempty"`
	MemberEmail       string `json:"member_email,omitempty"`
	InviteEmail       string `json:"invite_email,omitempty"`
	InvitationExpires string `json:"invitation_expires,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func newFamilyView(f *models.Family) familyView {
	return familyView{
		ID:         f.ID,
		Name:       f.Name,
		FamilyCode: f.FamilyCode,
		CreatedAt:  f.CreatedAt.Format(time.RFC3339),
	}
}

func newMembershipView(m *models.Membership) membershipView {
	v := membershipView{
		ID:          m.ID,
		FamilyID:    m.FamilyID,
		UserID:      m.UserID,
		Role:        string(m.Role),
		Status:      string(m.Status),
		MemberName:  m.MemberName,
		MemberEmail: m.MemberEmail,
		InviteEmail: m.InviteEmail,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.InvitationExpires != nil {
		v.InvitationExpires = m.InvitationExpires.Format(time.RFC3339)
	}
	return v
}

func membershipViews(ms []models.Membership) []membershipView {
	views := make([]membershipView, 0, len(ms))
	for i := range ms {
		views = append(views, newMembershipView(&ms[i]))
	}
	return views
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// CreateFamily handles POST /api/families
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	family, err := h.familyService.CreateFamily(req.Name, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newFamilyView(family))
}

// ListFamilies handles GET /api/families
func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	families, err := h.familyService.GetUserFamilies(user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	views := make([]familyView, 0, len(families))
	for i := range families {
		views = append(views, newFamilyView(&families[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetFamily handles GET /api/families/{id}
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	// Membership check doubles as the visibility rule: outsiders get the
	// same answer as a missing family.
	if _, err := h.membershipService.ListActive(familyID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	family, err := h.familyService.GetFamily(familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFamilyView(family))
}

// RenameFamily handles PATCH /api/families/{id}
func (h *FamilyHandler) RenameFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.familyService.RenameFamily(familyID, user.ID, req.Name); err != nil {
		respondWithServiceError(w, err)
		return
	}

	family, err := h.familyService.GetFamily(familyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFamilyView(family))
}

// DeleteFamily handles DELETE /api/families/{id}
func (h *FamilyHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	if err := h.familyService.DeleteFamily(familyID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// JoinFamily handles POST /api/families/join
func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		FamilyCode string `json:"family_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	family, err := h.familyService.JoinByCode(user.ID, req.FamilyCode)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFamilyView(family))
}

// ListMembers handles GET /api/families/{id}/members
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	members, err := h.membershipService.ListActive(familyID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipViews(members))
}

// ListInvitations handles GET /api/families/{id}/invitations
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	pending, err := h.membershipService.ListPending(familyID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipViews(pending))
}

// Invite handles POST /api/families/{id}/invitations. The body names either
// an email address or a registered user.
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req struct {
		Email  string `json:"email"`
		UserID int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var m *models.Membership
	var err error
	switch {
	case req.UserID != 0:
		m, err = h.membershipService.InviteUser(familyID, user.ID, req.UserID)
	case req.Email != "":
		m, err = h.membershipService.InviteByEmail(familyID, user.ID, req.Email)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email or user_id is required"})
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newMembershipView(m))
}

// AcceptInvitation handles POST /api/invitations/accept
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	m, err := h.membershipService.Accept(req.Token, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMembershipView(m))
}

// ApproveMembership handles POST /api/memberships/{id}/approve
func (h *FamilyHandler) ApproveMembership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	membershipID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid membership id"})
		return
	}

	m, err := h.membershipService.Approve(membershipID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMembershipView(m))
}

// RemoveMembership handles DELETE /api/memberships/{id}. Members use it to
// leave, managers to remove or revoke.
func (h *FamilyHandler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	membershipID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid membership id"})
		return
	}

	if err := h.membershipService.Remove(membershipID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GetMembership handles GET /api/memberships/{id}
func (h *FamilyHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	membershipID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid membership id"})
		return
	}

	m, err := h.membershipService.Get(membershipID, user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMembershipView(m))
}

// TransferManager handles POST /api/families/{id}/transfer
func (h *FamilyHandler) TransferManager(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req struct {
		NewManagerUserID int64 `json:"new_manager_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewManagerUserID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "new_manager_user_id is required"})
		return
	}

	if err := h.membershipService.TransferManager(familyID, user.ID, req.NewManagerUserID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
