// Package ids provides the ULID primitives used for user and token record ids.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars).
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Parse strictly decodes s and returns its canonical (upper-case) form.
func Parse(s string) (string, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
