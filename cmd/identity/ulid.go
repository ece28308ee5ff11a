package identity

import (
	"strings"
	"time"

	"bff/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string).
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// ParseID validates a user id supplied by a client.
func ParseID(raw string) (string, error) {
	id, err := ids.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", OpError{Op: "identity.ParseID", Kind: ErrInvalidID, Msg: "malformed user id"}
	}
	return id, nil
}
