package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:              "8460",
		JWTSecret:         "a-development-secret",
		CommentsPerPage:   10,
		RepliesLimit:      0,
		ReportPerPage:     25,
		DigestType:        DigestTypeSite,
		DigestUsersPerRun: 0,
		DigestInterval:    30 * time.Minute,
		Env:               "development",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid development config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("required fields", func(t *testing.T) {
		c := validConfig()
		c.Port = ""
		assert.Error(t, c.Validate())

		c = validConfig()
		c.JWTSecret = ""
		assert.Error(t, c.Validate())
	})

	t.Run("paging bounds", func(t *testing.T) {
		c := validConfig()
		c.CommentsPerPage = 0
		assert.Error(t, c.Validate())

		c = validConfig()
		c.RepliesLimit = -1
		assert.Error(t, c.Validate())

		c = validConfig()
		c.ReportPerPage = -5
		assert.Error(t, c.Validate())
	})

	t.Run("digest settings", func(t *testing.T) {
		c := validConfig()
		c.DigestType = "weekly"
		assert.Error(t, c.Validate())

		c = validConfig()
		c.DigestType = DigestTypeCourse
		assert.NoError(t, c.Validate())

		c = validConfig()
		c.DigestInterval = 0
		assert.Error(t, c.Validate())

		c = validConfig()
		c.DigestUsersPerRun = -1
		assert.Error(t, c.Validate())
	})

	t.Run("mail needs a host when enabled", func(t *testing.T) {
		c := validConfig()
		c.MailEnabled = true
		c.SMTPHost = ""
		assert.Error(t, c.Validate())

		c.SMTPHost = "smtp.example.edu"
		assert.NoError(t, c.Validate())
	})

	t.Run("production is strict about secrets", func(t *testing.T) {
		c := validConfig()
		c.Env = "production"
		c.JWTSecret = "your-secret-key-change-in-production"
		c.DBPassword = "strong-enough-password"
		assert.Error(t, c.Validate())

		c.JWTSecret = "short"
		assert.Error(t, c.Validate())

		c.JWTSecret = "this-is-a-sufficiently-long-production-secret"
		c.DBPassword = "password"
		assert.Error(t, c.Validate())

		c.DBPassword = "strong-enough-password"
		assert.NoError(t, c.Validate())
	})
}
