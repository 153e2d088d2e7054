package models

import "time"

// Family represents a household group of parents and children
type Family struct {
	ID         int64
	Name       string
	FamilyCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FamilyWithMembers combines a family with its active membership roster
type FamilyWithMembers struct {
	Family   Family
	Members  []Membership
	Children []Child
}
