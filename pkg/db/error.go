package db

import "strings"

// IsMissingTableErr reports whether err means the queried table does not exist.
func IsMissingTableErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// SQLite
	if strings.Contains(msg, "no such table") {
		return true
	}
	// PostgreSQL (42P01)
	if strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") {
		return true
	}
	// MySQL (1146)
	if strings.Contains(msg, "error 1146") {
		return true
	}
	return false
}
