package models

import "time"

// Child represents a child sub-account within a family. Children cannot log
// in with a password; they use a short PIN which is stored hashed.
type Child struct {
	ID        int64
	FamilyID  int64
	Name      string
	PINHash   string
	Birthdate *time.Time
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Age returns the child's age in whole years at the given date, or -1 when
// no birthdate is recorded.
func (c *Child) Age(today time.Time) int {
	if c.Birthdate == nil {
		return -1
	}
	b := *c.Birthdate
	age := today.Year() - b.Year()
	if today.Month() < b.Month() || (today.Month() == b.Month() && today.Day() < b.Day()) {
		age--
	}
	return age
}
