package repository

import (
	"database/sql"
	"fmt"
	"time"

	"stewardwell/internal/database"
	"stewardwell/internal/models"
)

// MembershipRepository owns the many-to-many relation between users and
// families, including pending invitations. The uniqueness constraints on
// (family_id, user_id) and invitation_token are the concurrency control:
// conditional UPDATEs report zero affected rows to the loser of a race
// instead of taking explicit locks.
type MembershipRepository struct {
	db *database.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *database.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipColumns = `m.id, m.family_id, m.user_id, m.role, m.status,
	m.invited_by, m.invite_email, m.invitation_token, m.invitation_expires,
	m.created_at, m.updated_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.Membership, error) {
	var m models.Membership
	var userID, invitedBy sql.NullInt64
	var inviteEmail, token sql.NullString
	var expires sql.NullTime

	err := row.Scan(
		&m.ID, &m.FamilyID, &userID, &m.Role, &m.Status,
		&invitedBy, &inviteEmail, &token, &expires,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		m.UserID = &userID.Int64
	}
	if invitedBy.Valid {
		m.InvitedBy = &invitedBy.Int64
	}
	if inviteEmail.Valid {
		m.InviteEmail = inviteEmail.String
	}
	if token.Valid {
		m.InvitationToken = token.String
	}
	if expires.Valid {
		t := expires.Time
		m.InvitationExpires = &t
	}

	return &m, nil
}

// GetByID retrieves a membership by ID, or nil when absent
func (r *MembershipRepository) GetByID(id int64) (*models.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM memberships m WHERE m.id = ?"
	m, err := scanMembership(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// GetByFamilyAndUser retrieves the membership row for a (family, user) pair,
// or nil when absent. At most one such row exists.
func (r *MembershipRepository) GetByFamilyAndUser(familyID, userID int64) (*models.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM memberships m WHERE m.family_id = ? AND m.user_id = ?"
	m, err := scanMembership(r.db.QueryRow(query, familyID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// GetByFamilyAndEmail retrieves an email-only invitation row (no bound user)
// for the given family and address, or nil when absent.
func (r *MembershipRepository) GetByFamilyAndEmail(familyID int64, email string) (*models.Membership, error) {
	query := "SELECT " + membershipColumns + ` FROM memberships m
		WHERE m.family_id = ? AND m.user_id IS NULL AND m.invite_email = ?`
	m, err := scanMembership(r.db.QueryRow(query, familyID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership by email: %w", err)
	}
	return m, nil
}

// GetByToken retrieves a membership by its invitation token, or nil when no
// row holds that token. Pure lookup; expiry handling is the caller's job.
func (r *MembershipRepository) GetByToken(token string) (*models.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM memberships m WHERE m.invitation_token = ?"
	m, err := scanMembership(r.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership by token: %w", err)
	}
	return m, nil
}

// ListActive retrieves a family's active memberships ordered by join time,
// with the member's name and email joined in for roster views.
func (r *MembershipRepository) ListActive(familyID int64) ([]models.Membership, error) {
	query := "SELECT " + membershipColumns + `, u.name, u.email
		FROM memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.family_id = ? AND m.status = 'active'
		ORDER BY m.created_at ASC, m.id ASC`
	return r.listWithUsers(query, familyID)
}

// ListPending retrieves a family's pending memberships (invitations and
// join requests) for the manager's approval view. Email-only invitations
// carry the invite address instead of user details.
func (r *MembershipRepository) ListPending(familyID int64) ([]models.Membership, error) {
	query := "SELECT " + membershipColumns + `, COALESCE(u.name, ''), COALESCE(u.email, m.invite_email)
		FROM memberships m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.family_id = ? AND m.status = 'pending'
		ORDER BY m.created_at ASC, m.id ASC`
	return r.listWithUsers(query, familyID)
}

func (r *MembershipRepository) listWithUsers(query string, familyID int64) ([]models.Membership, error) {
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.Membership
	for rows.Next() {
		var m models.Membership
		var userID, invitedBy sql.NullInt64
		var inviteEmail, token sql.NullString
		var expires sql.NullTime
		var memberEmail sql.NullString

		err := rows.Scan(
			&m.ID, &m.FamilyID, &userID, &m.Role, &m.Status,
			&invitedBy, &inviteEmail, &token, &expires,
			&m.CreatedAt, &m.UpdatedAt,
			&m.MemberName, &memberEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}

		if userID.Valid {
			m.UserID = &userID.Int64
		}
		if invitedBy.Valid {
			m.InvitedBy = &invitedBy.Int64
		}
		if inviteEmail.Valid {
			m.InviteEmail = inviteEmail.String
		}
		if token.Valid {
			m.InvitationToken = token.String
		}
		if expires.Valid {
			t := expires.Time
			m.InvitationExpires = &t
		}
		if memberEmail.Valid {
			m.MemberEmail = memberEmail.String
		}

		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// CountActive returns the number of active memberships in a family
func (r *MembershipRepository) CountActive(familyID int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM memberships WHERE family_id = ? AND status = 'active'"
	if err := r.db.QueryRow(query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active memberships: %w", err)
	}
	return count, nil
}

// IsActiveManager reports whether the user is the family's active manager.
// This is the single authorization predicate for manager-only operations.
func (r *MembershipRepository) IsActiveManager(userID, familyID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM memberships
		WHERE user_id = ? AND family_id = ? AND role = 'manager' AND status = 'active'`
	if err := r.db.QueryRow(query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check manager role: %w", err)
	}
	return count > 0, nil
}

// HasActiveMembership reports whether the user holds any active membership
// in the family.
func (r *MembershipRepository) HasActiveMembership(userID, familyID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM memberships WHERE user_id = ? AND family_id = ? AND status = 'active'"
	if err := r.db.QueryRow(query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// Insert creates a new membership row and returns its ID. Uniqueness
// violations (duplicate (family, user) pair or token) are returned
// unwrapped for IsUniqueViolation checks.
func (r *MembershipRepository) Insert(m *models.Membership) (int64, error) {
	query := `INSERT INTO memberships
		(family_id, user_id, role, status, invited_by, invite_email, invitation_token, invitation_expires)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query,
		m.FamilyID,
		nullableID(m.UserID),
		string(m.Role),
		string(m.Status),
		nullableID(m.InvitedBy),
		nullableString(m.InviteEmail),
		nullableString(m.InvitationToken),
		nullableTime(m.InvitationExpires),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert membership: %w", err)
	}
	return id, nil
}

// RefreshInvitation replaces the token and expiry on a pending membership
// (idempotent re-invite). Only pending rows are touched.
func (r *MembershipRepository) RefreshInvitation(id int64, token string, expires time.Time, invitedBy int64) error {
	query := `UPDATE memberships
		SET invitation_token = ?, invitation_expires = ?, invited_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`
	result, err := r.db.Exec(query, token, expires, invitedBy, id)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to refresh invitation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ActivateByToken binds the user (when not already bound), activates the
// membership, and clears the token in one conditional UPDATE. The
// token-clearing is the serialization point under concurrent accepts: the
// first committer matches the row, every later attempt matches nothing and
// gets ok=false.
func (r *MembershipRepository) ActivateByToken(token string, userID int64) (bool, error) {
	query := `UPDATE memberships
		SET user_id = ?, status = 'active', invitation_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE invitation_token = ? AND status = 'pending'`
	result, err := r.db.Exec(query, userID, token)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, err
		}
		return false, fmt.Errorf("failed to activate membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// Activate transitions a pending membership to active (in-app approval
// path), clearing any outstanding token. Returns false when the row is no
// longer pending.
func (r *MembershipRepository) Activate(id int64) (bool, error) {
	query := `UPDATE memberships
		SET status = 'active', invitation_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to activate membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// Deactivate transitions a pending or active membership to inactive,
// clearing any outstanding token. Used for removal, leave, revocation and
// lazy expiry. Returns false when the row was already inactive.
func (r *MembershipRepository) Deactivate(id int64) (bool, error) {
	query := `UPDATE memberships
		SET status = 'inactive', invitation_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('pending', 'active')`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// TransferManager atomically demotes the current manager's membership and
// promotes the target's within one transaction. The demote runs first so the
// partial unique index on (family_id) for active managers never sees two
// managers. Returns false without side effects when either row is not in the
// required state.
func (r *MembershipRepository) TransferManager(fromID, toID int64) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	demote := `UPDATE memberships SET role = 'member', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND role = 'manager' AND status = 'active'`
	result, err := tx.Exec(demote, fromID)
	if err != nil {
		return false, fmt.Errorf("failed to demote manager: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows != 1 {
		return false, nil
	}

	promote := `UPDATE memberships SET role = 'manager', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND role = 'member' AND status = 'active'`
	result, err = tx.Exec(promote, toID)
	if err != nil {
		return false, fmt.Errorf("failed to promote member: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows != 1 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return true, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
