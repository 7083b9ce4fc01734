package server

import (
	"github.com/gofiber/fiber/v2"

	"tribune/internal/models"
	"tribune/internal/service"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	identifier := req.Login
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Login (or email) and password are required"))
	}

	pair, user, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"tokens": pair,
		"user":   user,
	})
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.RefreshToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Refresh token is required"))
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(pair)
}

// Logout handles POST /api/auth/logout. Revokes the presented access token
// and invalidates all refresh tokens of the user.
func (s *Server) Logout(c *fiber.Ctx) error {
	actor := actorFromLocals(c)

	if err := s.authService.Logout(c.UserContext(), actor, jtiFromLocals(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// VerifyEmail handles POST /api/auth/verify-email
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Token is required"))
	}

	if err := s.authService.VerifyEmail(c.UserContext(), req.Token); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Email confirmed"})
}

// ResendVerification handles POST /api/auth/resend-verification.
// Always answers 200 so the endpoint cannot be used to probe for accounts.
func (s *Server) ResendVerification(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email is required"))
	}

	if err := s.authService.ResendVerification(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "If the account exists, a verification email has been sent"})
}

// RequestPasswordReset handles POST /api/auth/password-reset.
// Always answers 200 so the endpoint cannot be used to probe for accounts.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email is required"))
	}

	if err := s.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "If the account exists, a reset email has been sent"})
}

// ResetPassword handles POST /api/auth/password-reset/confirm
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Token is required"))
	}

	if err := s.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}
