// Package validation holds input validation shared by the service layer.
package validation

import (
	"strings"

	"socialcomments/internal/models"
)

// MaxContentLength bounds comment and reply bodies.
const MaxContentLength = 5000

var allowedFormats = map[string]bool{
	"plain":    true,
	"markdown": true,
	"html":     true,
}

// Content validates a comment or reply body.
func Content(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > MaxContentLength {
		return models.NewValidationError("Content too long (max 5000 characters)")
	}
	return nil
}

// NormalizeFormat returns a valid markup format tag, defaulting to plain.
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if allowedFormats[format] {
		return format
	}
	return "plain"
}
