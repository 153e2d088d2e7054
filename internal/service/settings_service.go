package service

import (
	"strings"

	"stewardwell/internal/repository"
	"stewardwell/internal/validation"
)

// SettingsService manages per-family key/value settings. Reads are open to
// any active member; writes are manager only.
type SettingsService struct {
	settingsRepo   *repository.SettingsRepository
	membershipRepo *repository.MembershipRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo *repository.SettingsRepository, membershipRepo *repository.MembershipRepository) *SettingsService {
	return &SettingsService{
		settingsRepo:   settingsRepo,
		membershipRepo: membershipRepo,
	}
}

// GetSettings retrieves all settings for a family
func (s *SettingsService) GetSettings(familyID, actorUserID int64) (map[string]string, error) {
	ok, err := s.membershipRepo.HasActiveMembership(actorUserID, familyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	return s.settingsRepo.GetAllSettings(familyID)
}

// SetSetting inserts or updates one family setting
func (s *SettingsService) SetSetting(familyID, actorUserID int64, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return validation.ValidationError{Field: "key", Message: "key is required"}
	}

	isManager, err := s.membershipRepo.IsActiveManager(actorUserID, familyID)
	if err != nil {
		return err
	}
	if !isManager {
		return ErrNotAuthorized
	}
	return s.settingsRepo.SetSetting(familyID, key, value)
}
