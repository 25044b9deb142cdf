package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	NameMinLength     = 2
	NameMaxLength     = 50
	PasswordMinLength = 6
	// bcrypt ignores everything past 72 bytes.
	PasswordMaxLength = 72
)

// NormalizeName trims and validates a display name.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 {
		return "", invalid("name", "name is required")
	}
	if n < NameMinLength || n > NameMaxLength {
		return "", invalid("name", "name must be between %d and %d characters", NameMinLength, NameMaxLength)
	}
	return trimmed, nil
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || !strings.Contains(trimmed[strings.LastIndex(trimmed, "@")+1:], ".") {
		return "", invalid("email", "please enter a valid email")
	}
	return trimmed, nil
}

// ValidatePassword enforces length bounds only.
func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password", "password is required")
	}
	if len(password) < PasswordMinLength {
		return invalid("password", "password must be at least %d characters", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return invalid("password", "password must be at most %d characters", PasswordMaxLength)
	}
	return nil
}

// ValidatePasswordConfirmation rejects a confirmation that differs from password.
func ValidatePasswordConfirmation(password, confirm string) error {
	if confirm != password {
		return invalid("confirm_password", "passwords do not match")
	}
	return nil
}
