package password

import (
	"fmt"

	"bff/cmd/internal/auth/autherr"
)

var (
	// ErrPasswordTooShort and ErrPasswordTooLong are policy rejections.
	ErrPasswordTooShort = fmt.Errorf("%w: password too short", autherr.ErrMissingCredentials)
	ErrPasswordTooLong  = fmt.Errorf("%w: password too long", autherr.ErrMissingCredentials)

	// ErrMismatch means the password does not match the stored hash.
	ErrMismatch = fmt.Errorf("%w: password mismatch", autherr.ErrWrongCredentials)

	// ErrInvalidHash means the stored hash is malformed, unsupported or
	// carries out-of-bounds parameters.
	ErrInvalidHash = fmt.Errorf("%w: invalid password hash", autherr.ErrHash)
)
