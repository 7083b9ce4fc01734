package server

import (
	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// ListComments handles GET /api/posts/:id/comments
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 10)

	result, err := s.commentService.ListComments(c.UserContext(), actorFromLocals(c), postID,
		service.ListCommentsInput{
			Limit:  page.Limit,
			Offset: page.Offset,
			Sort:   c.Query("sort"),
			Status: c.Query("status"),
		})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), actor, postID, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComment handles GET /api/comments/:id
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.GetComment(c.UserContext(), actorFromLocals(c), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(comment)
}

// UpdateComment handles PATCH /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status  *string `json:"status"`
		Content *string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), actor, id,
		service.UpdateCommentInput{
			Status:  req.Status,
			Content: req.Content,
		})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// SetCommentLock handles PATCH /api/comments/:id/lock
func (s *Server) SetCommentLock(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Locked *bool `json:"locked"`
	}
	if err := c.BodyParser(&req); err != nil || req.Locked == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Locked flag is required"))
	}

	comment, err := s.commentService.SetLock(c.UserContext(), actor, id, *req.Locked)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(comment)
}
