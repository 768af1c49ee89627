// Package repository implements the data access layer for the application.
package repository

import (
	"strings"

	"socialcomments/internal/models"

	"gorm.io/gorm"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// groupScope narrows a comment query to the viewer's visible groups.
// An unrestricted set leaves the query untouched.
func groupScope(db *gorm.DB, groups models.GroupSet) *gorm.DB {
	if groups.Unrestricted() {
		return db
	}
	return db.Where("group_id IN ?", []uint(groups))
}
