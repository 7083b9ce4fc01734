package server

import (
	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// SetLike handles POST /api/likes. Creates or replaces the caller's reaction
// on exactly one target, a post or a comment.
func (s *Server) SetLike(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		PostID    *uint  `json:"post_id"`
		CommentID *uint  `json:"comment_id"`
		Type      string `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.likeService.SetLike(c.UserContext(), actor, service.SetLikeInput{
		LikeTargetInput: service.LikeTargetInput{
			PostID:    req.PostID,
			CommentID: req.CommentID,
		},
		Type: req.Type,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Reaction saved"})
}

// RemoveLike handles DELETE /api/likes. Removing a reaction that does not
// exist is not an error.
func (s *Server) RemoveLike(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		PostID    *uint `json:"post_id"`
		CommentID *uint `json:"comment_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.likeService.RemoveLike(c.UserContext(), actor, service.LikeTargetInput{
		PostID:    req.PostID,
		CommentID: req.CommentID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Reaction removed"})
}

// ListPostLikes handles GET /api/posts/:id/likes
func (s *Server) ListPostLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 10)

	result, err := s.likeService.ListPostLikes(c.UserContext(), actorFromLocals(c), postID,
		service.ListLikesInput{
			Limit:  page.Limit,
			Offset: page.Offset,
			Sort:   c.Query("sort"),
		})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// ListCommentLikes handles GET /api/comments/:id/likes
func (s *Server) ListCommentLikes(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 10)

	result, err := s.likeService.ListCommentLikes(c.UserContext(), actorFromLocals(c), commentID,
		service.ListLikesInput{
			Limit:  page.Limit,
			Offset: page.Offset,
			Sort:   c.Query("sort"),
		})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}
