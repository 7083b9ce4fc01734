package server

import (
	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// ListCategories handles GET /api/categories
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext(), service.ListCategoriesInput{
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(categories)
}

// GetCategory handles GET /api/categories/:id
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	category, err := s.categoryService.GetCategory(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(category)
}

// CreateCategory handles POST /api/categories
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), actor, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.UpdateCategory(c.UserContext(), actor, id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.DeleteCategory(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Category deleted"})
}
