package credentials

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 100
	MinPasswordLength = 1
	MaxPasswordLength = 200

	maxSanitizedLength = 255
)

var (
	controlSequences = strings.NewReplacer(
		"'", "",
		`"`, "",
		"`", "",
		";", "",
		`\`, "",
		"--", "",
		"/*", "",
		"*/", "",
	)
	sqlKeywords = regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union|alter|create|truncate|exec|execute)\b`)
)

// SanitizeUsername strips quoting and comment sequences, rejects embedded
// SQL keywords and enforces the length bounds on what is left. Storage is
// parameterized, this only keeps junk out of the portal login form.
func SanitizeUsername(raw string) (string, error) {
	username := controlSequences.Replace(strings.TrimSpace(raw))
	username = strings.TrimSpace(username)

	if keyword := sqlKeywords.FindString(username); keyword != "" {
		return "", fmt.Errorf("%w: contains %q", ErrInvalidUsername, strings.ToLower(keyword))
	}
	if utf8.RuneCountInString(username) > maxSanitizedLength {
		username = string([]rune(username)[:maxSanitizedLength])
	}

	length := utf8.RuneCountInString(username)
	if length < MinUsernameLength || length > MaxUsernameLength {
		return "", fmt.Errorf(
			"%w: must be between %d and %d characters",
			ErrInvalidUsername, MinUsernameLength, MaxUsernameLength,
		)
	}
	return username, nil
}

// ValidatePassword checks the length of a password, passwords are opaque
// and never altered.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength || length > MaxPasswordLength {
		return fmt.Errorf(
			"%w: must be between %d and %d characters",
			ErrInvalidPassword, MinPasswordLength, MaxPasswordLength,
		)
	}
	return nil
}
