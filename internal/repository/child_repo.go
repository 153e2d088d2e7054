package repository

import (
	"database/sql"
	"fmt"
	"time"

	"stewardwell/internal/database"
	"stewardwell/internal/models"
)

// ChildRepository handles database operations for child sub-accounts
type ChildRepository struct {
	db *database.DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild creates a new child profile within a family
func (r *ChildRepository) CreateChild(familyID int64, name, pinHash string, birthdate *time.Time, createdBy int64) (*models.Child, error) {
	query := "INSERT INTO children (family_id, name, pin_hash, birthdate, created_by) VALUES (?, ?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, familyID, name, pinHash, nullableTime(birthdate), createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	return &models.Child{
		ID:        id,
		FamilyID:  familyID,
		Name:      name,
		PINHash:   pinHash,
		Birthdate: birthdate,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// GetChildByID retrieves a child by ID, or nil when absent
func (r *ChildRepository) GetChildByID(childID int64) (*models.Child, error) {
	query := `SELECT id, family_id, name, pin_hash, birthdate, created_by, created_at, updated_at
		FROM children WHERE id = ?`
	child := &models.Child{}
	var birthdate sql.NullTime
	err := r.db.QueryRow(query, childID).Scan(
		&child.ID,
		&child.FamilyID,
		&child.Name,
		&child.PINHash,
		&birthdate,
		&child.CreatedBy,
		&child.CreatedAt,
		&child.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}

	if birthdate.Valid {
		t := birthdate.Time
		child.Birthdate = &t
	}

	return child, nil
}

// GetFamilyChildren retrieves all children in a family
func (r *ChildRepository) GetFamilyChildren(familyID int64) ([]models.Child, error) {
	query := `SELECT id, family_id, name, pin_hash, birthdate, created_by, created_at, updated_at
		FROM children WHERE family_id = ? ORDER BY created_at ASC`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var child models.Child
		var birthdate sql.NullTime
		if err := rows.Scan(
			&child.ID,
			&child.FamilyID,
			&child.Name,
			&child.PINHash,
			&birthdate,
			&child.CreatedBy,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if birthdate.Valid {
			t := birthdate.Time
			child.Birthdate = &t
		}
		children = append(children, child)
	}

	return children, rows.Err()
}

// UpdateChild updates a child's name and birthdate
func (r *ChildRepository) UpdateChild(childID int64, name string, birthdate *time.Time) error {
	query := "UPDATE children SET name = ?, birthdate = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, name, nullableTime(birthdate), childID); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// UpdateChildPIN replaces a child's PIN hash
func (r *ChildRepository) UpdateChildPIN(childID int64, pinHash string) error {
	query := "UPDATE children SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, pinHash, childID); err != nil {
		return fmt.Errorf("failed to update child PIN: %w", err)
	}
	return nil
}

// DeleteChild deletes a child profile
func (r *ChildRepository) DeleteChild(childID int64) error {
	if _, err := r.db.Exec("DELETE FROM children WHERE id = ?", childID); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}
