package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultBytes is the entropy of email verification secrets.
	DefaultBytes = 32

	minBytes = 16
	maxBytes = 128
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewRandomHex returns n bytes from crypto/rand, hex-encoded.
func NewRandomHex(n int) (string, error) {
	if n < minBytes || n > maxBytes {
		return "", ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
