package identity

import (
	"fmt"

	"bff/cmd/internal/auth/autherr"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
// They share identity with the autherr taxonomy.
var (
	ErrInvalidInput = fmt.Errorf("%w: invalid input", autherr.ErrMissingCredentials)
	ErrInvalidID    = autherr.ErrInvalidID
	ErrNotFound     = autherr.ErrNotFound
	ErrConflict     = autherr.ErrDuplicateKey
)
