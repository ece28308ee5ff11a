package identity

import (
	"strings"
	"unicode/utf8"
)

// MinUsernameLength is the shortest accepted username, in runes.
const MinUsernameLength = 5

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail rejects empty addresses and anything without an "@".
func ValidateEmail(email string) error {
	e := strings.TrimSpace(email)
	if e == "" || !strings.Contains(e, "@") {
		return OpError{Op: "identity.ValidateEmail", Kind: ErrInvalidInput, Msg: "email is required"}
	}
	return nil
}

// ValidateUsername enforces MinUsernameLength.
func ValidateUsername(username string) error {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < MinUsernameLength {
		return OpError{Op: "identity.ValidateUsername", Kind: ErrInvalidInput, Msg: "username too short"}
	}
	return nil
}
