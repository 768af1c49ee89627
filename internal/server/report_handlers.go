package server

import (
	"socialcomments/internal/featureflags"
	"socialcomments/internal/models"
	"socialcomments/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// GetCourseReport returns one page of the filtered course comments report.
// Filters arrive as query parameters: context, author, content, from, to.
func (s *Server) GetCourseReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if !s.featureFlags.Enabled(featureflags.FlagReportView, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionError("The comments report is not available"))
	}

	filter := repository.ReportFilter{
		CourseID:     courseID,
		ContextID:    uint(c.QueryInt("context", 0)),
		AuthorPrefix: c.Query("author"),
		Content:      c.Query("content"),
		FromTime:     int64(c.QueryInt("from", 0)),
		ToTime:       int64(c.QueryInt("to", 0)),
	}

	page := c.QueryInt("page", 0)

	result, err := s.reportService.CourseComments(ctx, filter, userID, page)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// GetCourseNewItems returns the recent-activity feed for a course.
func (s *Server) GetCourseNewItems(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if !s.featureFlags.Enabled(featureflags.FlagNewsFeed, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionError("The news feed is not available"))
	}

	since := int64(c.QueryInt("since", 0))

	result, err := s.reportService.CourseNewItems(ctx, courseID, userID, since)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// GetCoursePinned returns the viewer's pinned comments and pages in a course.
func (s *Server) GetCoursePinned(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if !s.featureFlags.Enabled(featureflags.FlagPinnedView, userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionError("The pinned view is not available"))
	}

	result, err := s.reportService.PinnedCourseComments(ctx, courseID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
