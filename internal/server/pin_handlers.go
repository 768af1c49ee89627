package server

import (
	"socialcomments/internal/models"
	"socialcomments/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SetPinned toggles a pin for the acting user. Without a comment_id the
// whole page (context) is pinned; with one, that single comment.
func (s *Server) SetPinned(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	contextID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Checked   bool `json:"checked"`
		CommentID uint `json:"comment_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.commentService.SetPinned(ctx, service.SetPinnedInput{
		ContextID: contextID,
		UserID:    userID,
		Checked:   req.Checked,
		CommentID: req.CommentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// SetSubscribed toggles the digest subscription for a context.
func (s *Server) SetSubscribed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	contextID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Checked bool `json:"checked"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	subscribed, err := s.commentService.SetSubscribed(ctx, contextID, userID, req.Checked)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"subscribed": subscribed})
}
