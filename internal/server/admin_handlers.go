package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the raw feature flag configuration.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.featureFlags.Raw()})
}

// RunDigests triggers one scheduled digest pass immediately.
func (s *Server) RunDigests(c *fiber.Ctx) error {
	stats, err := s.digestService.RunScheduledDigests(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// RunUserDigest sends the digest for one user immediately.
func (s *Server) RunUserDigest(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	sent, err := s.digestService.SendDigestForUser(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "sent": sent})
}

// CourseDeleted is the lifecycle hook the host platform calls after removing
// a course. All comment data belonging to the course is purged.
func (s *Server) CourseDeleted(c *fiber.Ctx) error {
	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.lifecycleService.HandleCourseDeleted(c.UserContext(), courseID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"course_id": courseID, "status": "cleaned"})
}

// UserDeleted is the lifecycle hook for user removal: subscriptions and pins
// are dropped, authored content stays.
func (s *Server) UserDeleted(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.lifecycleService.HandleUserDeleted(c.UserContext(), userID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "status": "cleaned"})
}
