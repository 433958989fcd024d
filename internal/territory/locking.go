package territory

import (
	"strings"

	"gorm.io/gorm/clause"
)

// forUpdate is the row-locking clause used when the engine lacks a
// partial unique index (mysql)
func forUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

// isUniqueViolation matches the duplicate-key errors the supported
// engines raise when the partial unique index rejects a second active
// holder
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate entry") // mysql
}
