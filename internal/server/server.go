// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"tribune/internal/cache"
	"tribune/internal/config"
	"tribune/internal/database"
	"tribune/internal/mailer"
	"tribune/internal/middleware"
	"tribune/internal/models"
	"tribune/internal/repository"
	"tribune/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	likeRepo     repository.LikeRepository
	categoryRepo repository.CategoryRepository
	tokenRepo    repository.TokenRepository

	authService     *service.AuthService
	postService     *service.PostService
	commentService  *service.CommentService
	likeService     *service.LikeService
	userService     *service.UserService
	categoryService *service.CategoryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("tribune-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		likeRepo:       repository.NewLikeRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		tokenRepo:      repository.NewTokenRepository(db),
	}

	server.authService = service.NewAuthService(db, server.userRepo, server.tokenRepo, mailer.New(cfg), cfg)
	server.postService = service.NewPostService(db, server.postRepo, server.categoryRepo)
	server.commentService = service.NewCommentService(db, server.commentRepo, server.postRepo)
	server.likeService = service.NewLikeService(db, server.likeRepo, server.postRepo, server.commentRepo)
	server.userService = service.NewUserService(server.userRepo)
	server.categoryService = service.NewCategoryService(server.categoryRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Distributed tracing spans, before ContextMiddleware so the trace ID
	// lands in the request context for logging
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware runs before middlewares that can short-circuit (e.g.
	// limiter) so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Tribune Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/verify-email", s.VerifyEmail)
	auth.Post("/resend-verification", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "resend_verification"), s.ResendVerification)
	auth.Post("/password-reset", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "password_reset"), s.RequestPasswordReset)
	auth.Post("/password-reset/confirm", s.ResetPassword)

	// Post routes. Reads are public with optional identity so owners see
	// their own hidden content; writes require authentication.
	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.ListPosts)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes go BEFORE the generic /:id route
	posts.Get("/:id/comments", s.OptionalAuth(), s.ListComments)
	posts.Post("/:id/comments", s.AuthRequired(), middleware.RateLimit(
		s.redis, 15, 5*time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id/likes", s.OptionalAuth(), s.ListPostLikes)
	posts.Get("/:id/categories", s.OptionalAuth(), s.ListPostCategories)
	posts.Patch("/:id/lock", s.AuthRequired(), s.AdminRequired(), s.SetPostLock)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Patch("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	// Comment routes
	comments := api.Group("/comments")
	comments.Get("/:id/likes", s.OptionalAuth(), s.ListCommentLikes)
	comments.Patch("/:id/lock", s.AuthRequired(), s.AdminRequired(), s.SetCommentLock)
	comments.Get("/:id", s.OptionalAuth(), s.GetComment)
	comments.Patch("/:id", s.AuthRequired(), s.UpdateComment)
	comments.Delete("/:id", s.AuthRequired(), s.DeleteComment)

	// Like routes: the target travels in the body, XOR post_id/comment_id
	likes := api.Group("/likes", s.AuthRequired())
	likes.Post("/", middleware.RateLimit(
		s.redis, 60, time.Minute, "set_like"), s.SetLike)
	likes.Delete("/", s.RemoveLike)

	// User routes
	users := api.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/", s.ListUsers)
	users.Post("/", s.AuthRequired(), s.AdminRequired(), s.AdminCreateUser)
	users.Patch("/:id/role", s.AuthRequired(), s.AdminRequired(), s.SetUserRole)
	users.Get("/:id", s.GetUserProfile)
	users.Patch("/:id", s.AuthRequired(), s.AdminRequired(), s.AdminUpdateUser)
	users.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.AdminDeleteUser)

	// Category routes
	categories := api.Group("/categories")
	categories.Get("/", s.ListCategories)
	categories.Post("/", s.AuthRequired(), s.AdminRequired(), s.CreateCategory)
	categories.Get("/:id", s.GetCategory)
	categories.Put("/:id", s.AuthRequired(), s.AdminRequired(), s.UpdateCategory)
	categories.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteCategory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API serves without Redis, with caching and rate limiting off
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns middleware that authenticates the request and places
// the resolved actor in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		actor, jti, err := s.resolveActor(c, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		storeActor(c, actor, jti)
		return c.Next()
	}
}

// OptionalAuth resolves the actor when a valid token is presented and lets
// anonymous requests through. A presented but invalid token is rejected so
// clients notice expired credentials instead of silently degrading.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return c.Next()
		}

		actor, jti, err := s.resolveActor(c, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		storeActor(c, actor, jti)
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403. Must be placed after
// AuthRequired so the actor is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := actorFromLocals(c)
		if !actor.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Administrator access required"))
		}
		return c.Next()
	}
}

// resolveActor validates the access token, checks the jti against the
// revocation list and loads the user's current role. Role comes from storage
// rather than the token so a demotion takes effect before the token expires.
func (s *Server) resolveActor(c *fiber.Ctx, tokenString string) (*models.Actor, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, "", fmt.Errorf("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", fmt.Errorf("Invalid token claims")
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "tribune-api" {
		return nil, "", fmt.Errorf("Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "tribune-client" {
		return nil, "", fmt.Errorf("Invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, "", fmt.Errorf("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, "", fmt.Errorf("Invalid user ID in token")
	}

	jti, _ := claims["jti"].(string)
	if jti != "" {
		revoked, err := s.tokenRepo.IsAccessTokenRevoked(c.Context(), jti)
		if err != nil {
			return nil, "", fmt.Errorf("Invalid or expired token")
		}
		if revoked {
			return nil, "", fmt.Errorf("Token has been revoked")
		}
	}

	user, err := s.userRepo.GetByIDCached(c.Context(), uint(userID))
	if err != nil {
		return nil, "", fmt.Errorf("Invalid or expired token")
	}

	return &models.Actor{ID: user.ID, Role: user.Role}, jti, nil
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func storeActor(c *fiber.Ctx, actor *models.Actor, jti string) {
	c.Locals("actor", actor)
	c.Locals("userID", actor.ID)
	c.Locals("jti", jti)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, actor.ID)
	c.SetUserContext(ctx)
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Tribune API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
