package repository

import (
	"database/sql"
	"fmt"

	"stewardwell/internal/database"
)

// SettingsRepository handles per-family key/value settings
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value for a family. Missing keys return
// the empty string without error.
func (r *SettingsRepository) GetSetting(familyID int64, key string) (string, error) {
	var value string
	query := "SELECT value FROM family_settings WHERE family_id = ? AND key = ?"
	err := r.db.QueryRow(query, familyID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting inserts or updates a family setting. The upsert syntax differs
// per engine, so the statement comes from the dialect.
func (r *SettingsRepository) SetSetting(familyID int64, key, value string) error {
	query := r.db.Dialect.UpsertFamilySettingQuery()
	if _, err := r.db.Exec(query, familyID, key, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// GetAllSettings retrieves all settings for a family as a map
func (r *SettingsRepository) GetAllSettings(familyID int64) (map[string]string, error) {
	query := "SELECT key, value FROM family_settings WHERE family_id = ?"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}
