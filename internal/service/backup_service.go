package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"stewardwell/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Users       []UserBackup       `json:"users"`
	Families    []FamilyBackup     `json:"families"`
	Memberships []MembershipBackup `json:"memberships"`
	Children    []ChildBackup      `json:"children"`
	Settings    []SettingBackup    `json:"settings"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"oauth_subject,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FamilyCode string    `json:"family_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MembershipBackup represents a membership ledger row for backup. Pending
// rows keep their token and expiry so outstanding invitations survive a
// restore.
type MembershipBackup struct {
	ID                int64      `json:"id"`
	FamilyID          int64      `json:"family_id"`
	UserID            *int64     `json:"user_id,omitempty"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	InvitedBy         *int64     `json:"invited_by,omitempty"`
	InviteEmail       string     `json:"invite_email,omitempty"`
	InvitationToken   string     `json:"invitation_token,omitempty"`
	InvitationExpires *time.Time `json:"invitation_expires,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChildBackup represents a child profile for backup
type ChildBackup struct {
	ID        int64      `json:"id"`
	FamilyID  int64      `json:"family_id"`
	Name      string     `json:"name"`
	PINHash   string     `json:"pin_hash"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SettingBackup represents a family setting for backup
type SettingBackup struct {
	FamilyID int64  `json:"family_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// BackupService handles database backup and restore operations. Records
// carry their original IDs so restoring into an empty database preserves
// every cross-table reference.
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportMemberships(backup); err != nil {
		return fmt.Errorf("failed to export memberships: %w", err)
	}
	if err := s.exportChildren(backup); err != nil {
		return fmt.Errorf("failed to export children: %w", err)
	}
	if err := s.exportSettings(backup); err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	log.Printf("Exported %d users, %d families, %d memberships, %d children, %d settings",
		len(backup.Users), len(backup.Families), len(backup.Memberships),
		len(backup.Children), len(backup.Settings))
	return nil
}

// Import restores a backup file into the database. Rows are inserted with
// their original IDs, so importing into a non-empty database collides on
// duplicates.
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	var backup BackupData
	if err := json.NewDecoder(file).Decode(&backup); err != nil {
		return fmt.Errorf("failed to parse backup file: %w", err)
	}

	log.Printf("Importing backup from %s (version %s)", backup.ExportedAt.Format(time.RFC3339), backup.Version)

	// Parent tables first so foreign keys resolve.
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importMemberships(backup.Memberships); err != nil {
		return fmt.Errorf("failed to import memberships: %w", err)
	}
	if err := s.importChildren(backup.Children); err != nil {
		return fmt.Errorf("failed to import children: %w", err)
	}
	if err := s.importSettings(backup.Settings); err != nil {
		return fmt.Errorf("failed to import settings: %w", err)
	}

	log.Printf("Imported %d users, %d families, %d memberships, %d children, %d settings",
		len(backup.Users), len(backup.Families), len(backup.Memberships),
		len(backup.Children), len(backup.Settings))
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, email, password_hash, name,
		COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), is_admin, created_at, updated_at
		FROM users ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
			&u.OAuthProvider, &u.OAuthSubject, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, name, family_code, created_at, updated_at FROM families ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.FamilyCode, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportMemberships(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, family_id, user_id, role, status,
		invited_by, invite_email, invitation_token, invitation_expires, created_at, updated_at
		FROM memberships ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MembershipBackup
		var userID, invitedBy sql.NullInt64
		var inviteEmail, token sql.NullString
		var expires sql.NullTime
		if err := rows.Scan(&m.ID, &m.FamilyID, &userID, &m.Role, &m.Status,
			&invitedBy, &inviteEmail, &token, &expires, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
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
		backup.Memberships = append(backup.Memberships, m)
	}
	return rows.Err()
}

func (s *BackupService) exportChildren(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, family_id, name, pin_hash, birthdate, created_by, created_at, updated_at
		FROM children ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		var birthdate sql.NullTime
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.PINHash, &birthdate,
			&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		if birthdate.Valid {
			t := birthdate.Time
			c.Birthdate = &t
		}
		backup.Children = append(backup.Children, c)
	}
	return rows.Err()
}

func (s *BackupService) exportSettings(backup *BackupData) error {
	rows, err := s.db.Query("SELECT family_id, key, value FROM family_settings ORDER BY family_id, key")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st SettingBackup
		if err := rows.Scan(&st.FamilyID, &st.Key, &st.Value); err != nil {
			return err
		}
		backup.Settings = append(backup.Settings, st)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	for _, u := range users {
		_, err := s.db.Exec(`INSERT INTO users
			(id, email, password_hash, name, oauth_provider, oauth_subject, is_admin, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, u.PasswordHash, u.Name,
			nullableString(u.OAuthProvider), nullableString(u.OAuthSubject),
			u.IsAdmin, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	for _, f := range families {
		_, err := s.db.Exec(`INSERT INTO families (id, name, family_code, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.FamilyCode, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importMemberships(memberships []MembershipBackup) error {
	for _, m := range memberships {
		_, err := s.db.Exec(`INSERT INTO memberships
			(id, family_id, user_id, role, status, invited_by, invite_email, invitation_token, invitation_expires, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.FamilyID, nullableID(m.UserID), m.Role, m.Status,
			nullableID(m.InvitedBy), nullableString(m.InviteEmail),
			nullableString(m.InvitationToken), nullableTime(m.InvitationExpires),
			m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importChildren(children []ChildBackup) error {
	for _, c := range children {
		_, err := s.db.Exec(`INSERT INTO children
			(id, family_id, name, pin_hash, birthdate, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.FamilyID, c.Name, c.PINHash, nullableTime(c.Birthdate),
			c.CreatedBy, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importSettings(settings []SettingBackup) error {
	query := s.db.Dialect.UpsertFamilySettingQuery()
	for _, st := range settings {
		if _, err := s.db.Exec(query, st.FamilyID, st.Key, st.Value); err != nil {
			return err
		}
	}
	return nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
