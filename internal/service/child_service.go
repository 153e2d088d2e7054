package service

import (
	"fmt"
	"strings"
	"time"

	"stewardwell/internal/models"
	"stewardwell/internal/repository"
	"stewardwell/internal/security"
	"stewardwell/internal/validation"
)

// ChildService manages child profiles inside a family. Children are not
// user accounts: they belong to a family, log in with a PIN, and any
// active member of the family may manage them.
type ChildService struct {
	childRepo      *repository.ChildRepository
	membershipRepo *repository.MembershipRepository
}

// NewChildService creates a new child service
func NewChildService(childRepo *repository.ChildRepository, membershipRepo *repository.MembershipRepository) *ChildService {
	return &ChildService{
		childRepo:      childRepo,
		membershipRepo: membershipRepo,
	}
}

// CreateChild adds a child profile to the family
func (s *ChildService) CreateChild(familyID, actorUserID int64, name, pin string, birthdate *time.Time) (*models.Child, error) {
	if err := s.requireActiveMember(actorUserID, familyID); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return nil, err
	}

	pinHash, err := security.HashPIN(pin)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	return s.childRepo.CreateChild(familyID, strings.TrimSpace(name), pinHash, birthdate, actorUserID)
}

// GetChild retrieves a child visible to the caller
func (s *ChildService) GetChild(childID, actorUserID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrNotFound
	}
	if err := s.requireActiveMember(actorUserID, child.FamilyID); err != nil {
		return nil, err
	}
	return child, nil
}

// GetFamilyChildren lists the family's children
func (s *ChildService) GetFamilyChildren(familyID, actorUserID int64) ([]models.Child, error) {
	if err := s.requireActiveMember(actorUserID, familyID); err != nil {
		return nil, err
	}
	return s.childRepo.GetFamilyChildren(familyID)
}

// UpdateChild updates a child's name and birthdate
func (s *ChildService) UpdateChild(childID, actorUserID int64, name string, birthdate *time.Time) error {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrNotFound
	}
	if err := s.requireActiveMember(actorUserID, child.FamilyID); err != nil {
		return err
	}
	if err := validation.ValidateName(name); err != nil {
		return err
	}

	return s.childRepo.UpdateChild(childID, strings.TrimSpace(name), birthdate)
}

// UpdateChildPIN replaces a child's PIN
func (s *ChildService) UpdateChildPIN(childID, actorUserID int64, pin string) error {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrNotFound
	}
	if err := s.requireActiveMember(actorUserID, child.FamilyID); err != nil {
		return err
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return err
	}

	pinHash, err := security.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}
	return s.childRepo.UpdateChildPIN(childID, pinHash)
}

// DeleteChild removes a child profile
func (s *ChildService) DeleteChild(childID, actorUserID int64) error {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrNotFound
	}
	if err := s.requireActiveMember(actorUserID, child.FamilyID); err != nil {
		return err
	}
	return s.childRepo.DeleteChild(childID)
}

// VerifyChildPIN checks a child's PIN for the kid login flow. The child is
// selected within a family, so a stolen PIN alone identifies nothing.
func (s *ChildService) VerifyChildPIN(childID, familyID int64, pin string) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil || child.FamilyID != familyID {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPIN(pin, child.PINHash) {
		return nil, ErrInvalidCredentials
	}
	return child, nil
}

func (s *ChildService) requireActiveMember(userID, familyID int64) error {
	ok, err := s.membershipRepo.HasActiveMembership(userID, familyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}
