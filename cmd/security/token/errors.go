package token

import "errors"

// ErrInvalidLength is returned when a requested secret size is out of bounds.
var ErrInvalidLength = errors.New("token: invalid length")
