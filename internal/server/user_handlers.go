package server

import (
	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), actorFromLocals(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		FullName       *string `json:"full_name"`
		ProfilePicture *string `json:"profile_picture"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateMe(c.UserContext(), actor, service.UpdateProfileInput{
		FullName:       req.FullName,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// ListUsers handles GET /api/users. Results are ordered by rating.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 10)

	result, err := s.userService.ListUsers(c.UserContext(), service.ListUsersInput{
		Limit:  page.Limit,
		Offset: page.Offset,
		Search: c.Query("search"),
		Role:   c.Query("role"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// AdminCreateUser handles POST /api/users
func (s *Server) AdminCreateUser(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.AdminCreateUser(c.UserContext(), actor, service.AdminCreateUserInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// AdminUpdateUser handles PATCH /api/users/:id
func (s *Server) AdminUpdateUser(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Email          *string `json:"email"`
		FullName       *string `json:"full_name"`
		ProfilePicture *string `json:"profile_picture"`
		Password       *string `json:"password"`
		Role           *string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.AdminUpdateUser(c.UserContext(), actor, id, service.AdminUpdateUserInput{
		Email:          req.Email,
		FullName:       req.FullName,
		ProfilePicture: req.ProfilePicture,
		Password:       req.Password,
		Role:           req.Role,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// AdminDeleteUser handles DELETE /api/users/:id
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.AdminDeleteUser(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User deleted"})
}

// SetUserRole handles PATCH /api/users/:id/role
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	actor := actorFromLocals(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || req.Role == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Role is required"))
	}

	user, err := s.userService.SetRole(c.UserContext(), actor, id, req.Role)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}
