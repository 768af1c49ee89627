package server

import (
	"socialcomments/internal/models"
	"socialcomments/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetContextComments returns one page of comments for a context. The `page`
// query parameter defaults to the last page (-1); out-of-range pages clamp.
func (s *Server) GetContextComments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	contextID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := c.QueryInt("page", service.LastPage)

	result, err := s.commentService.GetCommentsPage(ctx, contextID, userID, page)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// SaveComment creates a comment (id 0 or absent) or updates one (id > 0).
func (s *Server) SaveComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		ID        uint   `json:"id"`
		ContextID uint   `json:"context_id"`
		Content   string `json:"content"`
		Format    string `json:"format"`
		GroupID   *int64 `json:"group_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	groupID := int64(-1)
	if req.GroupID != nil {
		groupID = *req.GroupID
	}

	result, err := s.commentService.SaveComment(ctx, service.SaveCommentInput{
		ID:        req.ID,
		ContextID: req.ContextID,
		Content:   req.Content,
		Format:    req.Format,
		GroupID:   groupID,
		UserID:    userID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if req.ID == 0 {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// DeleteComment deletes a comment together with its replies and pins.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.DeleteComment(ctx, commentID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// SaveReply creates a reply (id 0 or absent) or updates one (id > 0).
func (s *Server) SaveReply(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		ID        uint   `json:"id"`
		ContextID uint   `json:"context_id"`
		CommentID uint   `json:"comment_id"`
		Content   string `json:"content"`
		Format    string `json:"format"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reply, err := s.commentService.SaveReply(ctx, service.SaveReplyInput{
		ID:        req.ID,
		ContextID: req.ContextID,
		CommentID: req.CommentID,
		Content:   req.Content,
		Format:    req.Format,
		UserID:    userID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if req.ID == 0 {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(reply)
}

// DeleteReply deletes one reply.
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	replyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.DeleteReply(ctx, replyID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
