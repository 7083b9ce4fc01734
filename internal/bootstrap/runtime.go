// Package bootstrap wires up runtime dependencies shared by the binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"tribune/internal/cache"
	"tribune/internal/config"
	"tribune/internal/database"
	"tribune/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and ensures the configured
// administrator account exists. The Redis client may be nil when the server
// is unreachable; caching and rate limiting then degrade to pass-through.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("admin bootstrap failed: %w", err)
	}

	return db, r, nil
}

// ensureAdmin provisions the administrator named in the configuration. An
// existing account with that login is promoted rather than recreated, so a
// demoted or fresh database always leaves one admin to work with.
func ensureAdmin(cfg *config.Config, db *gorm.DB) error {
	login := strings.TrimSpace(cfg.AdminLogin)
	if login == "" {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.AdminEmail))
	if email == "" {
		return fmt.Errorf("ADMIN_EMAIL must be set when ADMIN_LOGIN is configured")
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set when ADMIN_LOGIN is configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("login = ?", login).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Login:          login,
				Email:          email,
				PasswordHash:   string(hash),
				Role:           models.RoleAdmin,
				EmailConfirmed: true,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).
				Where("id = ?", admin.ID).
				Updates(map[string]any{
					"role":            models.RoleAdmin,
					"email_confirmed": true,
				}).Error
		}
	})
}
