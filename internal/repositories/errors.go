package repositories

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrVersionConflict is returned when a row changed between read and write
var ErrVersionConflict = errors.New("row was modified concurrently")

// maxWriteAttempts bounds the optimistic retry loops
const maxWriteAttempts = 5

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
