package service

import (
	"fmt"
	"strings"

	"stewardwell/internal/invitecode"
	"stewardwell/internal/models"
	"stewardwell/internal/repository"
	"stewardwell/internal/validation"
)

// maxCodeAttempts bounds the redraw loop when a freshly generated family
// code collides with an existing one.
const maxCodeAttempts = 10

// FamilyService manages family lifecycle and join-by-code
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	membershipRepo *repository.MembershipRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, membershipRepo *repository.MembershipRepository) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		membershipRepo: membershipRepo,
	}
}

// CreateFamily creates a family with a fresh join code and makes the creator
// its active manager. Code collisions trigger a redraw; after maxCodeAttempts
// consecutive collisions the operation fails rather than looping forever.
func (s *FamilyService) CreateFamily(name string, creatorUserID int64) (*models.Family, error) {
	if err := validation.ValidateFamilyName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := invitecode.NewFamilyCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate family code: %w", err)
		}

		family, err := s.familyRepo.CreateFamily(name, code, creatorUserID)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return family, nil
	}

	return nil, ErrCodeGenerationExhausted
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrNotFound
	}
	return family, nil
}

// FindByCode resolves a join code to a family. Lookup is case-insensitive
// and ignores surrounding whitespace.
func (s *FamilyService) FindByCode(code string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByCode(invitecode.NormalizeFamilyCode(code))
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrNotFound
	}
	return family, nil
}

// GetUserFamilies lists the families where the user is an active member
func (s *FamilyService) GetUserFamilies(userID int64) ([]models.Family, error) {
	return s.familyRepo.GetUserFamilies(userID)
}

// JoinByCode adds the user to the family identified by the code, immediately
// active with role member. A pending invitation for the same user activates
// in place; an active or inactive membership blocks the join.
func (s *FamilyService) JoinByCode(userID int64, code string) (*models.Family, error) {
	family, err := s.FindByCode(code)
	if err != nil {
		return nil, err
	}

	existing, err := s.membershipRepo.GetByFamilyAndUser(family.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case models.StatusPending:
			ok, err := s.membershipRepo.Activate(existing.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrInvalidState
			}
			return family, nil
		default:
			return nil, ErrInvalidState
		}
	}

	_, err = s.membershipRepo.Insert(&models.Membership{
		FamilyID: family.ID,
		UserID:   &userID,
		Role:     models.RoleMember,
		Status:   models.StatusActive,
	})
	if err != nil {
		// A concurrent join or invite won the (family, user) slot.
		if repository.IsUniqueViolation(err) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	return family, nil
}

// RenameFamily updates a family's display name. Manager only.
func (s *FamilyService) RenameFamily(familyID, actorUserID int64, name string) error {
	if err := validation.ValidateFamilyName(name); err != nil {
		return err
	}

	isManager, err := s.membershipRepo.IsActiveManager(actorUserID, familyID)
	if err != nil {
		return err
	}
	if !isManager {
		return ErrNotAuthorized
	}

	return s.familyRepo.UpdateFamily(familyID, strings.TrimSpace(name))
}

// DeleteFamily removes a family and everything attached to it. Only the
// manager may delete, and only while they are the sole active member.
func (s *FamilyService) DeleteFamily(familyID, actorUserID int64) error {
	isManager, err := s.membershipRepo.IsActiveManager(actorUserID, familyID)
	if err != nil {
		return err
	}
	if !isManager {
		return ErrNotAuthorized
	}

	count, err := s.membershipRepo.CountActive(familyID)
	if err != nil {
		return err
	}
	if count > 1 {
		return ErrInvalidState
	}

	return s.familyRepo.DeleteFamily(familyID)
}
