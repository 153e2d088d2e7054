package repository

import "strings"

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// Each supported driver words the error differently (sqlite: "UNIQUE
// constraint failed", postgres: "duplicate key value violates unique
// constraint", mysql: "Duplicate entry"), so this matches on message text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate entry")
}
