package utils

import (
	"errors"
	"regexp"
	"strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_]*$`)

var (
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrUsernameTooLong  = errors.New("username must be at most 20 characters")
	ErrUsernameChars    = errors.New("username can only contain letters, numbers, and underscores and must start with a letter or number")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// ValidateUsername checks the admin username: 3-20 characters, letters,
// numbers and underscores, not starting with an underscore.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	switch {
	case len(username) < MinUsernameLength:
		return ErrUsernameTooShort
	case len(username) > MaxUsernameLength:
		return ErrUsernameTooLong
	case !usernameRegex.MatchString(username):
		return ErrUsernameChars
	}
	return nil
}

// ValidatePassword enforces the minimum admin password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
