// Package models contains data structures for the application's domain models.
package models

import "time"

// Role determines the privilege level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
// PasswordHash is never serialized. Rating is denormalized in the
// user_ratings table and joined in at read time.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Login          string    `gorm:"uniqueIndex;not null" json:"login"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	FullName       string    `json:"full_name"`
	ProfilePicture string    `json:"profile_picture"`
	Role           Role      `gorm:"type:varchar(16);not null;default:user" json:"role"`
	EmailConfirmed bool      `gorm:"not null;default:false" json:"email_confirmed"`
	Rating         int       `gorm:"->;-:migration" json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserRating is the denormalized net score of a user, maintained by full
// recompute after every like mutation that touches the user's content.
type UserRating struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Rating    int       `gorm:"not null;default:0" json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}
