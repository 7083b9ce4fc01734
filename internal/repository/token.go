package repository

import (
	"context"
	"errors"
	"time"

	"tribune/internal/models"

	"gorm.io/gorm"
)

// TokenRepository defines persistence operations for the token tables used
// by the auth flows: email confirmation, password reset, refresh rotation
// and access token revocation.
type TokenRepository interface {
	CreateEmailToken(ctx context.Context, token *models.EmailToken) error
	ConsumeEmailToken(ctx context.Context, token string) (*models.EmailToken, error)
	DeleteEmailTokensForUser(ctx context.Context, userID uint) error

	CreateResetToken(ctx context.Context, token *models.ResetToken) error
	ConsumeResetToken(ctx context.Context, token string) (*models.ResetToken, error)
	DeleteResetTokensForUser(ctx context.Context, userID uint) error

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteRefreshTokensForUser(ctx context.Context, userID uint) error

	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context) error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateEmailToken(ctx context.Context, token *models.EmailToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ConsumeEmailToken fetches and deletes an unexpired email token in one
// transaction so a token can only be used once.
func (r *tokenRepository) ConsumeEmailToken(ctx context.Context, token string) (*models.EmailToken, error) {
	var row models.EmailToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ? AND expires_at > ?", token, time.Now()).First(&row).Error; err != nil {
			return err
		}
		return tx.Delete(&models.EmailToken{}, row.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError("Invalid or expired token")
		}
		return nil, models.NewInternalError(err)
	}
	return &row, nil
}

func (r *tokenRepository) DeleteEmailTokensForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.EmailToken{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) CreateResetToken(ctx context.Context, token *models.ResetToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) ConsumeResetToken(ctx context.Context, token string) (*models.ResetToken, error) {
	var row models.ResetToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ? AND expires_at > ?", token, time.Now()).First(&row).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ResetToken{}, row.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError("Invalid or expired token")
		}
		return nil, models.NewInternalError(err)
	}
	return &row, nil
}

func (r *tokenRepository) DeleteResetTokensForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ResetToken{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, time.Now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &row, nil
}

func (r *tokenRepository) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.RefreshToken{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) DeleteRefreshTokensForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	row := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// PurgeExpired drops expired rows from all token tables. Run periodically.
func (r *tokenRepository) PurgeExpired(ctx context.Context) error {
	now := time.Now()
	for _, model := range []interface{}{
		&models.EmailToken{},
		&models.ResetToken{},
		&models.RefreshToken{},
		&models.RevokedToken{},
	} {
		if err := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(model).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	return nil
}
