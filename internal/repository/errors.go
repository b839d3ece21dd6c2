package repository

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert collides with a unique key.
// Callers in the auth flow use it to detect lost creation races and
// fall back to re-reading the winning row.
var ErrDuplicate = errors.New("duplicate key")

// isDuplicate reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
