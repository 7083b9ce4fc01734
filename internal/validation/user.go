// Package validation contains input validation rules for user-facing fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 12
	passwordMaxLength = 128
	loginMinLength    = 3
	loginMaxLength    = 32
	emailMaxLength    = 254
)

var loginRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)

var reservedLogins = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"auth":       {},
	"users":      {},
	"posts":      {},
	"comments":   {},
	"categories": {},
	"likes":      {},
	"metrics":    {},
	"login":      {},
	"signup":     {},
	"root":       {},
	"system":     {},
}

// ValidateLogin validates login format and reserved names.
func ValidateLogin(login string) error {
	if len(login) < loginMinLength || len(login) > loginMaxLength {
		return fmt.Errorf("login must be %d-%d characters", loginMinLength, loginMaxLength)
	}

	if !loginRegex.MatchString(login) {
		return fmt.Errorf("login may contain only letters, numbers, hyphens and underscores, and must start and end with a letter or number")
	}

	if _, exists := reservedLogins[strings.ToLower(login)]; exists {
		return fmt.Errorf("login is reserved")
	}

	return nil
}

// ValidatePassword enforces the password policy: length bounds plus at least
// one upper case letter, one lower case letter, one digit and one special
// character. Unicode letters count toward the letter classes.
func ValidatePassword(password string) error {
	length := len([]rune(password))
	if length < passwordMinLength {
		return fmt.Errorf("password must be at least %d characters", passwordMinLength)
	}
	if length > passwordMaxLength {
		return fmt.Errorf("password must be at most %d characters", passwordMaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain an upper case letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain a lower case letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	if !hasSpecial {
		return fmt.Errorf("password must contain a special character")
	}

	return nil
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@.][^\s@]*\.[a-zA-Z]{2,}$`)

// ValidateEmail validates email format and length.
func ValidateEmail(email string) error {
	if len(email) > emailMaxLength {
		return fmt.Errorf("email must be at most %d characters", emailMaxLength)
	}
	if strings.HasSuffix(email, ".") || !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
