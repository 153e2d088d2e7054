package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stewardwell/internal/database"
	"stewardwell/internal/models"
	"stewardwell/internal/repository"
)

type testEnv struct {
	db          *database.DB
	users       *repository.UserRepository
	memberships *repository.MembershipRepository
	families    *repository.FamilyRepository
	children    *repository.ChildRepository
	settings    *repository.SettingsRepository

	familySvc     *FamilyService
	membershipSvc *MembershipService
	childSvc      *ChildService
	authSvc       *AuthService
	settingsSvc   *SettingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env := &testEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		memberships: repository.NewMembershipRepository(db),
		families:    repository.NewFamilyRepository(db),
		children:    repository.NewChildRepository(db),
		settings:    repository.NewSettingsRepository(db),
	}
	env.familySvc = NewFamilyService(env.families, env.memberships)
	env.membershipSvc = NewMembershipService(env.memberships, env.families, env.users, nil, 7*24*time.Hour)
	env.childSvc = NewChildService(env.children, env.memberships)
	env.authSvc = NewAuthService(env.users, env.familySvc, nil, time.Hour)
	env.settingsSvc = NewSettingsService(env.settings, env.memberships)
	return env
}

func (env *testEnv) createUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	user, err := env.users.CreateUser(email, "hashed-password", name)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

// createFamilyWith creates a family managed by the given user and returns it.
func (env *testEnv) createFamilyWith(t *testing.T, name string, manager *models.User) *models.Family {
	t.Helper()
	family, err := env.familySvc.CreateFamily(name, manager.ID)
	if err != nil {
		t.Fatalf("failed to create family %s: %v", name, err)
	}
	return family
}

// addActiveMember joins a user into a family via its code.
func (env *testEnv) addActiveMember(t *testing.T, family *models.Family, user *models.User) {
	t.Helper()
	if _, err := env.familySvc.JoinByCode(user.ID, family.FamilyCode); err != nil {
		t.Fatalf("failed to join family: %v", err)
	}
}

func TestInviteByEmailUnknownAddress(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	family := env.createFamilyWith(t, "The Tests", manager)

	m, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "newcomer@example.com")
	if err != nil {
		t.Fatalf("InviteByEmail failed: %v", err)
	}

	if m.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", m.Status)
	}
	if m.UserID != nil {
		t.Errorf("user id = %v, want nil for email-only invitation", *m.UserID)
	}
	if m.InviteEmail != "newcomer@example.com" {
		t.Errorf("invite email = %q", m.InviteEmail)
	}
	if m.InvitationToken == "" {
		t.Error("invitation token is empty")
	}
	if m.InvitationExpires == nil || !m.InvitationExpires.After(time.Now()) {
		t.Error("invitation expiry missing or not in the future")
	}
	if m.InvitedBy == nil || *m.InvitedBy != manager.ID {
		t.Error("invited_by not recorded")
	}
}

func TestInviteByEmailKnownUserBindsImmediately(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	invitee := env.createUser(t, "invitee@example.com", "Invitee")
	family := env.createFamilyWith(t, "The Tests", manager)

	m, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "invitee@example.com")
	if err != nil {
		t.Fatalf("InviteByEmail failed: %v", err)
	}

	if m.UserID == nil || *m.UserID != invitee.ID {
		t.Error("invitation not bound to the registered user")
	}
	if m.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", m.Status)
	}
}

func TestInviteByEmailIdempotentReinvite(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	family := env.createFamilyWith(t, "The Tests", manager)

	first, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "newcomer@example.com")
	if err != nil {
		t.Fatalf("first invite failed: %v", err)
	}
	second, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "newcomer@example.com")
	if err != nil {
		t.Fatalf("re-invite failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("re-invite created a new row: %d != %d", first.ID, second.ID)
	}
	if first.InvitationToken == second.InvitationToken {
		t.Error("re-invite did not rotate the token")
	}

	// The superseded token must no longer be redeemable.
	accepter := env.createUser(t, "accepter@example.com", "Accepter")
	if _, err := env.membershipSvc.Accept(first.InvitationToken, accepter.ID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("accept with stale token: err = %v, want ErrInvalidToken", err)
	}
	if _, err := env.membershipSvc.Accept(second.InvitationToken, accepter.ID); err != nil {
		t.Errorf("accept with current token failed: %v", err)
	}
}

func TestInviteRequiresActiveMembership(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")
	family := env.createFamilyWith(t, "The Tests", manager)

	if _, err := env.membershipSvc.InviteByEmail(family.ID, outsider.ID, "x@example.com"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("outsider invite: err = %v, want ErrNotAuthorized", err)
	}
}

func TestInviteActiveMemberRejected(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	member := env.createUser(t, "member@example.com", "Member")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)

	if _, err := env.membershipSvc.InviteUser(family.ID, manager.ID, member.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("invite of active member: err = %v, want ErrInvalidState", err)
	}
}

func TestInviteAfterRemovalRejected(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	member := env.createUser(t, "member@example.com", "Member")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)

	m, err := env.memberships.GetByFamilyAndUser(family.ID, member.ID)
	if err != nil || m == nil {
		t.Fatalf("failed to load membership: %v", err)
	}
	if err := env.membershipSvc.Remove(m.ID, manager.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// Inactive is terminal: no re-invite through the same pair.
	if _, err := env.membershipSvc.InviteUser(family.ID, manager.ID, member.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("invite of removed member: err = %v, want ErrInvalidState", err)
	}
}

func TestAcceptActivatesAndConsumesToken(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	family := env.createFamilyWith(t, "The Tests", manager)

	invitation, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "newcomer@example.com")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	newcomer := env.createUser(t, "newcomer@example.com", "Newcomer")
	m, err := env.membershipSvc.Accept(invitation.InvitationToken, newcomer.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if m.Status != models.StatusActive {
		t.Errorf("status = %s, want active", m.Status)
	}
	if m.UserID == nil || *m.UserID != newcomer.ID {
		t.Error("accept did not bind the user")
	}
	if m.InvitationToken != "" {
		t.Error("token not cleared on accept")
	}

	// Single use: the second redemption fails regardless of who tries.
	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, newcomer.ID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second accept: err = %v, want ErrInvalidToken", err)
	}
	other := env.createUser(t, "other@example.com", "Other")
	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, other.ID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second accept by other user: err = %v, want ErrInvalidToken", err)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	family := env.createFamilyWith(t, "The Tests", manager)

	past := time.Now().Add(-time.Minute)
	id, err := env.memberships.Insert(&models.Membership{
		FamilyID:          family.ID,
		Role:              models.RoleMember,
		Status:            models.StatusPending,
		InvitedBy:         &manager.ID,
		InviteEmail:       "late@example.com",
		InvitationToken:   "expiredtoken00000000000000000000",
		InvitationExpires: &past,
	})
	if err != nil {
		t.Fatalf("failed to insert invitation: %v", err)
	}

	late := env.createUser(t, "late@example.com", "Late")
	if _, err := env.membershipSvc.Accept("expiredtoken00000000000000000000", late.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("accept expired: err = %v, want ErrInvitationExpired", err)
	}

	// Lazy expiry deactivates the row and clears the token.
	m, err := env.memberships.GetByID(id)
	if err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}
	if m.Status != models.StatusInactive {
		t.Errorf("status after expired accept = %s, want inactive", m.Status)
	}
	if m.InvitationToken != "" {
		t.Error("token not cleared on expiry")
	}
}

func TestAcceptBoundInvitationWrongUser(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	invitee := env.createUser(t, "invitee@example.com", "Invitee")
	stranger := env.createUser(t, "stranger@example.com", "Stranger")
	family := env.createFamilyWith(t, "The Tests", manager)

	invitation, err := env.membershipSvc.InviteUser(family.ID, manager.ID, invitee.ID)
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, stranger.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("accept by wrong user: err = %v, want ErrNotAuthorized", err)
	}

	// The invitation survives the failed redemption.
	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, invitee.ID); err != nil {
		t.Errorf("accept by invitee after failed attempt: %v", err)
	}
}

func TestAcceptEmailInvitationWithExistingMembership(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	family := env.createFamilyWith(t, "The Tests", manager)

	invitation, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "shared@example.com")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	// The manager already holds a membership in this family, so redeeming
	// the email-only token would violate the one-row-per-pair rule.
	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, manager.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("accept with existing membership: err = %v, want ErrInvalidState", err)
	}
}

func TestAcceptUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", "User")

	if _, err := env.membershipSvc.Accept("nosuchtoken", user.ID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := env.membershipSvc.Accept("", user.ID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: err = %v, want ErrInvalidToken", err)
	}
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	invitee := env.createUser(t, "invitee@example.com", "Invitee")
	member := env.createUser(t, "member@example.com", "Member")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)

	invitation, err := env.membershipSvc.InviteUser(family.ID, manager.ID, invitee.ID)
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	t.Run("non-manager cannot approve", func(t *testing.T) {
		if _, err := env.membershipSvc.Approve(invitation.ID, member.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("manager approves pending invitation", func(t *testing.T) {
		m, err := env.membershipSvc.Approve(invitation.ID, manager.ID)
		if err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if m.Status != models.StatusActive {
			t.Errorf("status = %s, want active", m.Status)
		}
		if m.InvitationToken != "" {
			t.Error("token not cleared on approval")
		}
	})

	t.Run("approve is not repeatable", func(t *testing.T) {
		if _, err := env.membershipSvc.Approve(invitation.ID, manager.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("email-only invitation cannot be approved", func(t *testing.T) {
		emailInvite, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "nobody@example.com")
		if err != nil {
			t.Fatalf("invite failed: %v", err)
		}
		if _, err := env.membershipSvc.Approve(emailInvite.ID, manager.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("unknown membership", func(t *testing.T) {
		if _, err := env.membershipSvc.Approve(99999, manager.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestApproveExpiredInvitation(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	invitee := env.createUser(t, "invitee@example.com", "Invitee")
	family := env.createFamilyWith(t, "The Tests", manager)

	past := time.Now().Add(-time.Minute)
	id, err := env.memberships.Insert(&models.Membership{
		FamilyID:          family.ID,
		UserID:            &invitee.ID,
		Role:              models.RoleMember,
		Status:            models.StatusPending,
		InvitedBy:         &manager.ID,
		InvitationToken:   "expiredtoken11111111111111111111",
		InvitationExpires: &past,
	})
	if err != nil {
		t.Fatalf("failed to insert invitation: %v", err)
	}

	if _, err := env.membershipSvc.Approve(id, manager.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("err = %v, want ErrInvitationExpired", err)
	}

	m, err := env.memberships.GetByID(id)
	if err != nil {
		t.Fatalf("failed to reload membership: %v", err)
	}
	if m.Status != models.StatusInactive {
		t.Errorf("status = %s, want inactive after lazy expiry", m.Status)
	}
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	member := env.createUser(t, "member@example.com", "Member")
	leaver := env.createUser(t, "leaver@example.com", "Leaver")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)
	env.addActiveMember(t, family, leaver)

	memberRow, _ := env.memberships.GetByFamilyAndUser(family.ID, member.ID)
	leaverRow, _ := env.memberships.GetByFamilyAndUser(family.ID, leaver.ID)
	managerRow, _ := env.memberships.GetByFamilyAndUser(family.ID, manager.ID)

	t.Run("outsider cannot remove", func(t *testing.T) {
		if err := env.membershipSvc.Remove(memberRow.ID, outsider.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("member cannot remove another member", func(t *testing.T) {
		if err := env.membershipSvc.Remove(memberRow.ID, leaver.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("member leaves on their own", func(t *testing.T) {
		if err := env.membershipSvc.Remove(leaverRow.ID, leaver.ID); err != nil {
			t.Fatalf("self removal failed: %v", err)
		}
		m, _ := env.memberships.GetByID(leaverRow.ID)
		if m.Status != models.StatusInactive {
			t.Errorf("status = %s, want inactive", m.Status)
		}
	})

	t.Run("removing inactive row fails", func(t *testing.T) {
		if err := env.membershipSvc.Remove(leaverRow.ID, manager.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("manager removes member", func(t *testing.T) {
		if err := env.membershipSvc.Remove(memberRow.ID, manager.ID); err != nil {
			t.Fatalf("manager removal failed: %v", err)
		}
	})

	t.Run("manager cannot be removed", func(t *testing.T) {
		if err := env.membershipSvc.Remove(managerRow.ID, manager.ID); !errors.Is(err, ErrLastManager) {
			t.Errorf("err = %v, want ErrLastManager", err)
		}
	})
}

func TestTransferManager(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	member := env.createUser(t, "member@example.com", "Member")
	pending := env.createUser(t, "pending@example.com", "Pending")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)

	if _, err := env.membershipSvc.InviteUser(family.ID, manager.ID, pending.ID); err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	t.Run("non-manager cannot transfer", func(t *testing.T) {
		if err := env.membershipSvc.TransferManager(family.ID, member.ID, manager.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("transfer to pending member fails", func(t *testing.T) {
		if err := env.membershipSvc.TransferManager(family.ID, manager.ID, pending.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("transfer to self fails", func(t *testing.T) {
		if err := env.membershipSvc.TransferManager(family.ID, manager.ID, manager.ID); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("transfer to unknown user fails", func(t *testing.T) {
		if err := env.membershipSvc.TransferManager(family.ID, manager.ID, 99999); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("transfer to active member", func(t *testing.T) {
		if err := env.membershipSvc.TransferManager(family.ID, manager.ID, member.ID); err != nil {
			t.Fatalf("transfer failed: %v", err)
		}

		isManager, err := env.memberships.IsActiveManager(member.ID, family.ID)
		if err != nil || !isManager {
			t.Errorf("new manager not recognized: manager=%v err=%v", isManager, err)
		}
		wasManager, err := env.memberships.IsActiveManager(manager.ID, family.ID)
		if err != nil || wasManager {
			t.Errorf("old manager still recognized: manager=%v err=%v", wasManager, err)
		}
	})

	t.Run("former manager can now leave", func(t *testing.T) {
		row, _ := env.memberships.GetByFamilyAndUser(family.ID, manager.ID)
		if err := env.membershipSvc.Remove(row.ID, manager.ID); err != nil {
			t.Fatalf("former manager could not leave: %v", err)
		}
	})
}

func TestListActiveAndPending(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(t, "manager@example.com", "Manager")
	member := env.createUser(t, "member@example.com", "Member")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")
	family := env.createFamilyWith(t, "The Tests", manager)
	env.addActiveMember(t, family, member)

	if _, err := env.membershipSvc.InviteByEmail(family.ID, manager.ID, "invited@example.com"); err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	active, err := env.membershipSvc.ListActive(family.ID, member.ID)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active count = %d, want 2", len(active))
	}
	// Ordered by join time: the creator first.
	if active[0].UserID == nil || *active[0].UserID != manager.ID {
		t.Error("expected manager first in active roster")
	}
	if active[0].MemberName != "Manager" {
		t.Errorf("member name = %q, want Manager", active[0].MemberName)
	}

	if _, err := env.membershipSvc.ListActive(family.ID, outsider.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("outsider ListActive: err = %v, want ErrNotAuthorized", err)
	}

	pendingRows, err := env.membershipSvc.ListPending(family.ID, manager.ID)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pendingRows) != 1 {
		t.Fatalf("pending count = %d, want 1", len(pendingRows))
	}
	if pendingRows[0].MemberEmail != "invited@example.com" {
		t.Errorf("pending member email = %q", pendingRows[0].MemberEmail)
	}

	if _, err := env.membershipSvc.ListPending(family.ID, member.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("member ListPending: err = %v, want ErrNotAuthorized", err)
	}
}

// Full lifecycle: create, invite, accept, transfer, leave.
func TestMembershipLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", "Alice")
	bob := env.createUser(t, "bob@example.com", "Bob")

	family := env.createFamilyWith(t, "The Smiths", alice)

	invitation, err := env.membershipSvc.InviteByEmail(family.ID, alice.ID, "bob@example.com")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}

	if _, err := env.membershipSvc.Accept(invitation.InvitationToken, bob.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := env.membershipSvc.TransferManager(family.ID, alice.ID, bob.ID); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	aliceRow, _ := env.memberships.GetByFamilyAndUser(family.ID, alice.ID)
	if err := env.membershipSvc.Remove(aliceRow.ID, alice.ID); err != nil {
		t.Fatalf("alice could not leave: %v", err)
	}

	active, err := env.membershipSvc.ListActive(family.ID, bob.ID)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active count = %d, want 1", len(active))
	}
	if active[0].Role != models.RoleManager || *active[0].UserID != bob.ID {
		t.Error("bob is not the remaining manager")
	}

	families, err := env.familySvc.GetUserFamilies(alice.ID)
	if err != nil {
		t.Fatalf("GetUserFamilies failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("alice still lists %d families after leaving", len(families))
	}
}
