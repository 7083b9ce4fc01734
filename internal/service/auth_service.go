package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tribune/internal/config"
	"tribune/internal/mailer"
	"tribune/internal/models"
	"tribune/internal/observability"
	"tribune/internal/repository"
	"tribune/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
	emailTokenTTL   = 7 * 24 * time.Hour
	resetTokenTTL   = time.Hour
)

type AuthService struct {
	db     *gorm.DB
	users  repository.UserRepository
	tokens repository.TokenRepository
	mail   mailer.Mailer
	cfg    *config.Config
}

func NewAuthService(db *gorm.DB, users repository.UserRepository, tokens repository.TokenRepository, mail mailer.Mailer, cfg *config.Config) *AuthService {
	return &AuthService{db: db, users: users, tokens: tokens, mail: mail, cfg: cfg}
}

type RegisterInput struct {
	Login    string
	Email    string
	Password string
	FullName string
}

type LoginInput struct {
	// Identifier is a login or an email address.
	Identifier string
	Password   string
}

// TokenPair is the credentials envelope returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates an unconfirmed account and issues a verification token.
// The verification mail goes out after the transaction commits; a delivery
// failure never rolls the account back.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateLogin(in.Login); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.GetByLogin(ctx, in.Login); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Login already in use")
	}
	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Role:         models.RoleUser,
	}
	verifyToken := uuid.NewString()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			return err
		}
		return repository.NewTokenRepository(tx).CreateEmailToken(ctx, &models.EmailToken{
			UserID:    user.ID,
			Token:     verifyToken,
			ExpiresAt: time.Now().Add(emailTokenTTL),
		})
	})
	if err != nil {
		return nil, err
	}

	s.sendVerificationMail(ctx, user.Email, verifyToken)
	return user, nil
}

// Login authenticates by login or email and issues an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, *models.User, error) {
	if in.Identifier == "" || in.Password == "" {
		return nil, nil, models.NewValidationError("Identifier and password are required")
	}

	user, err := s.users.GetByLoginOrEmail(ctx, in.Identifier)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		observability.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		observability.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, nil, models.NewUnauthorizedError("Invalid credentials")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	observability.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented token is invalidated and a
// fresh pair is issued. A rotated or expired token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, models.NewValidationError("Refresh token is required")
	}

	hash := hashToken(refreshToken)
	stored, err := s.tokens.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, err
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil, models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.DeleteRefreshToken(ctx, hash); err != nil {
			return err
		}
		var issueErr error
		pair, issueErr = s.issueTokensWith(ctx, tokens, user)
		return issueErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the presented access token by jti and drops every refresh
// token of the user, ending all sessions.
func (s *AuthService) Logout(ctx context.Context, actor *models.Actor, jti string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if jti != "" {
			if err := tokens.RevokeAccessToken(ctx, jti, time.Now().Add(accessTokenTTL)); err != nil {
				return err
			}
		}
		return tokens.DeleteRefreshTokensForUser(ctx, actor.ID)
	})
}

// VerifyEmail consumes a verification token and marks the account confirmed.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return models.NewValidationError("Token is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := repository.NewTokenRepository(tx).ConsumeEmailToken(ctx, token)
		if err != nil {
			return err
		}
		users := repository.NewUserRepository(tx)
		user, err := users.GetByID(ctx, consumed.UserID)
		if err != nil {
			return err
		}
		user.EmailConfirmed = true
		return users.Update(ctx, user)
	})
}

// ResendVerification issues a fresh verification token. The response never
// discloses whether the address belongs to an account.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.EmailConfirmed {
		return nil
	}

	token := uuid.NewString()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.DeleteEmailTokensForUser(ctx, user.ID); err != nil {
			return err
		}
		return tokens.CreateEmailToken(ctx, &models.EmailToken{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: time.Now().Add(emailTokenTTL),
		})
	})
	if err != nil {
		return err
	}

	s.sendVerificationMail(ctx, user.Email, token)
	return nil
}

// RequestPasswordReset issues a reset token. As with ResendVerification, a
// missing account is indistinguishable from a successful request.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token := uuid.NewString()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		if err := tokens.DeleteResetTokensForUser(ctx, user.ID); err != nil {
			return err
		}
		return tokens.CreateResetToken(ctx, &models.ResetToken{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: time.Now().Add(resetTokenTTL),
		})
	})
	if err != nil {
		return err
	}

	s.sendMail(ctx, "password_reset", user.Email, "Reset your Tribune password",
		fmt.Sprintf("Reset your password: %s/reset-password?token=%s\n\nIf you did not request this, ignore this message.", s.cfg.BaseURL, token))
	return nil
}

// ResetPassword consumes a reset token, replaces the password and ends every
// session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return models.NewValidationError("Token is required")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens := repository.NewTokenRepository(tx)
		consumed, err := tokens.ConsumeResetToken(ctx, token)
		if err != nil {
			return err
		}
		users := repository.NewUserRepository(tx)
		user, err := users.GetByID(ctx, consumed.UserID)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		return tokens.DeleteRefreshTokensForUser(ctx, user.ID)
	})
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.issueTokensWith(ctx, s.tokens, user)
}

func (s *AuthService) issueTokensWith(ctx context.Context, tokens repository.TokenRepository, user *models.User) (*TokenPair, error) {
	access, err := s.mintAccessToken(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	refresh := uuid.NewString() + uuid.NewString()
	err = tokens.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) mintAccessToken(user *models.User) (string, error) {
	if s.cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"iss":  "tribune-api",
		"aud":  "tribune-client",
		"exp":  now.Add(accessTokenTTL).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) sendVerificationMail(ctx context.Context, email, token string) {
	s.sendMail(ctx, "verification", email, "Confirm your Tribune account",
		fmt.Sprintf("Welcome to Tribune!\n\nConfirm your email address: %s/verify-email?token=%s", s.cfg.BaseURL, token))
}

// sendMail delivers best-effort in the background. Failures are logged and
// counted, never surfaced to the caller.
func (s *AuthService) sendMail(ctx context.Context, kind, to, subject, body string) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		if err := s.mail.Send(sendCtx, to, subject, body); err != nil {
			observability.EmailsSentTotal.WithLabelValues(kind, "failure").Inc()
			slog.Warn("mail delivery failed", slog.String("kind", kind), slog.Any("error", err))
			return
		}
		observability.EmailsSentTotal.WithLabelValues(kind, "success").Inc()
	}()
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
