package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actor := actorFromLocals(c)
	page := parsePagination(c, 10)

	in := service.ListPostsInput{
		Limit:      page.Limit,
		Offset:     page.Offset,
		Sort:       c.Query("sort"),
		Search:     c.Query("search"),
		AuthorID:   uint(c.QueryInt("author_id", 0)),
		CategoryID: uint(c.QueryInt("category_id", 0)),
		Status:     c.Query("status"),
	}

	var err error
	if in.DateFrom, err = parseDateQuery(c, "date_from"); err != nil {
		return respondError(c, err)
	}
	if in.DateTo, err = parseDateQuery(c, "date_to"); err != nil {
		return respondError(c, err)
	}

	result, err := s.postService.ListPosts(ctx, actor, in)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		Image       string `json:"image,omitempty"`
		Status      string `json:"status,omitempty"`
		CategoryIDs []uint `json:"category_ids,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), actor, service.CreatePostInput{
		Title:       req.Title,
		Content:     req.Content,
		Image:       req.Image,
		Status:      req.Status,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), actorFromLocals(c), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       *string `json:"title"`
		Content     *string `json:"content"`
		Image       *string `json:"image"`
		Status      *string `json:"status"`
		CategoryIDs *[]uint `json:"category_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actor, id, service.UpdatePostInput{
		Title:       req.Title,
		Content:     req.Content,
		Image:       req.Image,
		Status:      req.Status,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(post)
}

// ListPostCategories handles GET /api/posts/:id/categories
func (s *Server) ListPostCategories(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	categories, err := s.postService.ListPostCategories(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(categories)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// SetPostLock handles PATCH /api/posts/:id/lock
func (s *Server) SetPostLock(c *fiber.Ctx) error {
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

	post, err := s.postService.SetLock(c.UserContext(), actor, id, *req.Locked)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(post)
}

// parseDateQuery reads an optional date query parameter, accepting RFC 3339
// timestamps and plain YYYY-MM-DD dates.
func parseDateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, models.NewValidationError("Invalid " + name + " date")
}
