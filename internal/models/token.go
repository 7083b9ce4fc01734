package models

import "time"

// EmailToken is a single-use email confirmation token. The raw value is sent
// to the user; the row stores it as issued since it already carries enough
// entropy to be unguessable.
type EmailToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ResetToken is a single-use password reset token.
type ResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshToken stores a sha256 hash of the opaque refresh token. Rotation on
// use deletes the row and issues a replacement; a presented token whose hash
// is absent has been rotated or revoked.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevokedToken blacklists an access token by its jti until the token would
// have expired anyway, so logout takes effect before the 15 minute window
// closes.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
