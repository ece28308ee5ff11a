package verification

import (
	"errors"
	"fmt"

	"bff/cmd/internal/auth/autherr"
)

var (
	// ErrDuplicateHash is returned by Store.Create when the token hash exists.
	ErrDuplicateHash = fmt.Errorf("%w: token_hash", autherr.ErrDuplicateKey)

	// ErrNotConsumable is returned by Store.Consume when no unused, unexpired
	// token matches the hash and subject.
	ErrNotConsumable = errors.New("verification token not consumable")
)
