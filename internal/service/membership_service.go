package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stewardwell/internal/invitecode"
	"stewardwell/internal/models"
	"stewardwell/internal/repository"
	"stewardwell/internal/validation"
)

// maxTokenAttempts bounds the redraw loop when a freshly generated
// invitation token collides with an existing one.
const maxTokenAttempts = 5

// MembershipService manages the membership ledger: invitations, accepts,
// approvals, removals and the manager role. All state transitions funnel
// through here so the single-manager and single-use-token rules hold no
// matter which handler triggered the change.
type MembershipService struct {
	membershipRepo *repository.MembershipRepository
	familyRepo     *repository.FamilyRepository
	userRepo       *repository.UserRepository
	email          *EmailService
	invitationTTL  time.Duration
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	membershipRepo *repository.MembershipRepository,
	familyRepo *repository.FamilyRepository,
	userRepo *repository.UserRepository,
	email *EmailService,
	invitationTTL time.Duration,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		familyRepo:     familyRepo,
		userRepo:       userRepo,
		email:          email,
		invitationTTL:  invitationTTL,
	}
}

// InviteByEmail invites an address into a family. When the address belongs
// to a registered user the invitation binds to that user immediately;
// otherwise an email-only pending row is created and the account binds on
// accept. Re-inviting a still-pending address reuses the row with a fresh
// token, so repeated invites never pile up duplicates. Any active member
// may invite.
func (s *MembershipService) InviteByEmail(familyID, inviterUserID int64, email string) (*models.Membership, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	ok, err := s.membershipRepo.HasActiveMembership(inviterUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	// Known account: bind the invitation to the user right away.
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.inviteUser(familyID, inviterUserID, user.ID)
	}

	existing, err := s.membershipRepo.GetByFamilyAndEmail(familyID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status != models.StatusPending {
			return nil, ErrInvalidState
		}
		return s.refreshInvitation(existing.ID, familyID, inviterUserID, email)
	}

	expires := time.Now().Add(s.invitationTTL)
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := invitecode.NewToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation token: %w", err)
		}

		m := &models.Membership{
			FamilyID:          familyID,
			Role:              models.RoleMember,
			Status:            models.StatusPending,
			InvitedBy:         &inviterUserID,
			InviteEmail:       email,
			InvitationToken:   token,
			InvitationExpires: &expires,
		}
		id, err := s.membershipRepo.Insert(m)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				// Token collision is astronomically rare but cheap to
				// retry. A concurrent invite for the same address lands
				// here too; re-read and refresh it instead.
				concurrent, rerr := s.membershipRepo.GetByFamilyAndEmail(familyID, email)
				if rerr != nil {
					return nil, rerr
				}
				if concurrent != nil {
					if concurrent.Status != models.StatusPending {
						return nil, ErrInvalidState
					}
					return s.refreshInvitation(concurrent.ID, familyID, inviterUserID, email)
				}
				continue
			}
			return nil, err
		}
		m.ID = id
		s.sendInvitation(familyID, email, token)
		return m, nil
	}

	return nil, fmt.Errorf("failed to insert invitation: %w", ErrInvalidToken)
}

// InviteUser invites a registered user into a family. Any active member
// may invite. The membership starts pending; the invitee activates it via
// the token link or a manager approves it in-app.
func (s *MembershipService) InviteUser(familyID, inviterUserID, targetUserID int64) (*models.Membership, error) {
	ok, err := s.membershipRepo.HasActiveMembership(inviterUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	user, err := s.userRepo.GetUserByID(targetUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	return s.inviteUser(familyID, inviterUserID, targetUserID)
}

// inviteUser creates or refreshes a pending membership bound to a known
// user. Callers have already authorized the inviter.
func (s *MembershipService) inviteUser(familyID, inviterUserID, targetUserID int64) (*models.Membership, error) {
	existing, err := s.membershipRepo.GetByFamilyAndUser(familyID, targetUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status != models.StatusPending {
			return nil, ErrInvalidState
		}
		return s.refreshInvitation(existing.ID, familyID, inviterUserID, existing.InviteEmail)
	}

	user, err := s.userRepo.GetUserByID(targetUserID)
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(s.invitationTTL)
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := invitecode.NewToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation token: %w", err)
		}

		m := &models.Membership{
			FamilyID:          familyID,
			UserID:            &targetUserID,
			Role:              models.RoleMember,
			Status:            models.StatusPending,
			InvitedBy:         &inviterUserID,
			InvitationToken:   token,
			InvitationExpires: &expires,
		}
		id, err := s.membershipRepo.Insert(m)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				// Either a token collision or a concurrent invite took
				// the (family, user) slot. Re-read to tell them apart.
				concurrent, rerr := s.membershipRepo.GetByFamilyAndUser(familyID, targetUserID)
				if rerr != nil {
					return nil, rerr
				}
				if concurrent != nil {
					if concurrent.Status != models.StatusPending {
						return nil, ErrInvalidState
					}
					return s.refreshInvitation(concurrent.ID, familyID, inviterUserID, concurrent.InviteEmail)
				}
				continue
			}
			return nil, err
		}
		m.ID = id
		if user != nil {
			s.sendInvitation(familyID, user.Email, token)
		}
		return m, nil
	}

	return nil, fmt.Errorf("failed to insert invitation: %w", ErrInvalidToken)
}

func (s *MembershipService) refreshInvitation(id, familyID, inviterUserID int64, email string) (*models.Membership, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := invitecode.NewToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation token: %w", err)
		}

		err = s.membershipRepo.RefreshInvitation(id, token, time.Now().Add(s.invitationTTL), inviterUserID)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			// Zero rows matched: the row left pending between our read
			// and the update.
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrInvalidState
			}
			return nil, err
		}

		if email != "" {
			s.sendInvitation(familyID, email, token)
		}
		return s.get(id)
	}

	return nil, fmt.Errorf("failed to refresh invitation: %w", ErrInvalidToken)
}

// Accept redeems an invitation token for the given user. The token is
// single-use: of any number of concurrent accepts, exactly one activates
// the membership and the rest see ErrInvalidToken. Expired invitations are
// deactivated on sight.
func (s *MembershipService) Accept(token string, userID int64) (*models.Membership, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	m, err := s.membershipRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status != models.StatusPending {
		return nil, ErrInvalidToken
	}

	if m.IsExpired(time.Now()) {
		if _, err := s.membershipRepo.Deactivate(m.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvitationExpired
	}

	// A user-bound invitation is only redeemable by that user.
	if m.UserID != nil && *m.UserID != userID {
		return nil, ErrNotAuthorized
	}

	// An email-only invitation must not collide with a membership the
	// accepting user already holds in this family.
	if m.UserID == nil {
		conflict, err := s.membershipRepo.GetByFamilyAndUser(m.FamilyID, userID)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, ErrInvalidState
		}
	}

	ok, err := s.membershipRepo.ActivateByToken(token, userID)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	if !ok {
		// Lost the race: someone else consumed the token first.
		return nil, ErrInvalidToken
	}

	return s.get(m.ID)
}

// Approve activates a pending user-bound membership in-app, without the
// token round-trip. Manager only. Email-only invitations cannot be
// approved because there is no account to activate.
func (s *MembershipService) Approve(membershipID, approverUserID int64) (*models.Membership, error) {
	m, err := s.membershipRepo.GetByID(membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}

	isManager, err := s.membershipRepo.IsActiveManager(approverUserID, m.FamilyID)
	if err != nil {
		return nil, err
	}
	if !isManager {
		return nil, ErrNotAuthorized
	}

	if m.Status != models.StatusPending {
		return nil, ErrInvalidState
	}
	if m.InvitationExpires != nil && m.IsExpired(time.Now()) {
		if _, err := s.membershipRepo.Deactivate(m.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvitationExpired
	}
	if m.UserID == nil {
		return nil, ErrInvalidState
	}

	ok, err := s.membershipRepo.Activate(m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	return s.get(m.ID)
}

// Remove deactivates a membership. Members may remove themselves (leave);
// the manager may remove anyone. The manager's own active membership is
// protected: a family never loses its last manager, so the role must be
// transferred first.
func (s *MembershipService) Remove(membershipID, actorUserID int64) error {
	m, err := s.membershipRepo.GetByID(membershipID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}

	self := m.UserID != nil && *m.UserID == actorUserID
	if !self {
		isManager, err := s.membershipRepo.IsActiveManager(actorUserID, m.FamilyID)
		if err != nil {
			return err
		}
		if !isManager {
			return ErrNotAuthorized
		}
	}

	if m.Status == models.StatusInactive {
		return ErrInvalidState
	}
	if m.Role == models.RoleManager && m.Status == models.StatusActive {
		return ErrLastManager
	}

	ok, err := s.membershipRepo.Deactivate(m.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}
	return nil
}

// TransferManager moves the manager role from the current manager to
// another active member of the same family. Demotion and promotion commit
// atomically, so the family always has exactly one active manager.
func (s *MembershipService) TransferManager(familyID, currentManagerUserID, newManagerUserID int64) error {
	current, err := s.membershipRepo.GetByFamilyAndUser(familyID, currentManagerUserID)
	if err != nil {
		return err
	}
	if current == nil || current.Role != models.RoleManager || current.Status != models.StatusActive {
		return ErrNotAuthorized
	}

	target, err := s.membershipRepo.GetByFamilyAndUser(familyID, newManagerUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Status != models.StatusActive || target.ID == current.ID {
		return ErrInvalidState
	}

	ok, err := s.membershipRepo.TransferManager(current.ID, target.ID)
	if err != nil {
		return err
	}
	if !ok {
		// One of the rows changed state under us.
		return ErrInvalidState
	}
	return nil
}

// Get retrieves a membership visible to the caller: their own, or any row
// in a family where they hold an active membership.
func (s *MembershipService) Get(membershipID, callerUserID int64) (*models.Membership, error) {
	m, err := s.membershipRepo.GetByID(membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}

	if m.UserID == nil || *m.UserID != callerUserID {
		ok, err := s.membershipRepo.HasActiveMembership(callerUserID, m.FamilyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}
	return m, nil
}

// ListActive lists a family's active members. Active members only.
func (s *MembershipService) ListActive(familyID, callerUserID int64) ([]models.Membership, error) {
	ok, err := s.membershipRepo.HasActiveMembership(callerUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	return s.membershipRepo.ListActive(familyID)
}

// ListPending lists a family's pending invitations. Manager only.
func (s *MembershipService) ListPending(familyID, callerUserID int64) ([]models.Membership, error) {
	isManager, err := s.membershipRepo.IsActiveManager(callerUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !isManager {
		return nil, ErrNotAuthorized
	}
	return s.membershipRepo.ListPending(familyID)
}

func (s *MembershipService) get(id int64) (*models.Membership, error) {
	m, err := s.membershipRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// sendInvitation emails the accept link. Delivery failures are logged, not
// returned: the invitation row exists and the inviter can re-send.
func (s *MembershipService) sendInvitation(familyID int64, email, token string) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil || family == nil {
		log.Printf("Invitation email skipped for %s: family %d lookup failed", email, familyID)
		return
	}
	if err := s.email.SendInvitationEmail(context.Background(), email, family.Name, token); err != nil {
		log.Printf("Failed to send invitation email to %s: %v", email, err)
	}
}
