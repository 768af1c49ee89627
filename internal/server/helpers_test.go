package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"socialcomments/internal/featureflags"
	"socialcomments/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"valid", "/things/7", http.StatusOK},
		{"zero", "/things/0", http.StatusBadRequest},
		{"negative", "/things/-3", http.StatusBadRequest},
		{"not a number", "/things/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"validation", models.NewValidationError("bad input"), http.StatusBadRequest},
		{"permission", models.NewPermissionError("not allowed"), http.StatusForbidden},
		{"not found", models.NewNotFoundError("Comment", 5), http.StatusNotFound},
		{"internal", models.NewInternalError(assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/boom", func(c *fiber.Ctx) error {
				return respondServiceError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestReportHandlers_FeatureFlagGates(t *testing.T) {
	// Flags off: the handlers must refuse before touching any service.
	s := &Server{featureFlags: featureflags.NewManager("report_view=off,news_feed=off,pinned_view=off")}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(3))
		return c.Next()
	})
	app.Get("/api/courses/:id/report", s.GetCourseReport)
	app.Get("/api/courses/:id/new", s.GetCourseNewItems)
	app.Get("/api/courses/:id/pinned", s.GetCoursePinned)

	for _, path := range []string{
		"/api/courses/1/report",
		"/api/courses/1/new",
		"/api/courses/1/pinned",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
