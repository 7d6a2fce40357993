package db

import "strings"

// IsUniqueViolation reports whether err is a Postgres unique violation. With a
// constraint name it matches that specific constraint; without one it matches
// any duplicate-key error. Matching is textual so sqlite-backed tests, whose
// driver reports constraint failures differently, behave the same way.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
