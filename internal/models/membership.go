package models

import "time"

// MembershipRole is the role a member holds within a family.
type MembershipRole string

const (
	RoleManager MembershipRole = "manager"
	RoleMember  MembershipRole = "member"
)

// MembershipStatus is the lifecycle state of a membership row.
type MembershipStatus string

const (
	StatusPending  MembershipStatus = "pending"
	StatusActive   MembershipStatus = "active"
	StatusInactive MembershipStatus = "inactive"
)

// Membership represents a user's relationship to a family. A single row
// covers both confirmed membership and a pending invitation: an invite sent
// to an email address with no registered account has a nil UserID until the
// invitation is accepted, at which point the user is bound and the email
// becomes informational only.
type Membership struct {
	ID                int64
	FamilyID          int64
	UserID            *int64
	Role              MembershipRole
	Status            MembershipStatus
	InvitedBy         *int64
	InviteEmail       string
	InvitationToken   string // cleared once the invitation is consumed
	InvitationExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Populated via JOIN for roster views
	MemberName  string
	MemberEmail string
}

// IsExpired reports whether a pending invitation is past its expiry at the
// given instant. The boundary is exclusive: expires_at == now counts as
// expired. Memberships without an expiry never expire.
func (m *Membership) IsExpired(now time.Time) bool {
	if m.InvitationExpires == nil {
		return false
	}
	return !now.Before(*m.InvitationExpires)
}

// IsAcceptable reports whether the row is a live pending invitation that can
// still be accepted at the given instant.
func (m *Membership) IsAcceptable(now time.Time) bool {
	return m.Status == StatusPending && m.InvitationToken != "" && !m.IsExpired(now)
}

// CanTransition reports whether the status change is allowed by the
// membership state machine. Inactive is terminal.
func (m *Membership) CanTransition(to MembershipStatus) bool {
	switch m.Status {
	case StatusPending:
		return to == StatusActive || to == StatusInactive
	case StatusActive:
		return to == StatusInactive
	default:
		return false
	}
}
