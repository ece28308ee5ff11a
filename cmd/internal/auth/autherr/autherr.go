// Package autherr defines the closed set of error kinds that cross the auth
// service boundary.
//
// Internal failures are wrapped with an Error carrying one of the kinds below.
// HTTP handlers only look at the kind, never at the wrapped cause.
package autherr

import (
	"errors"
	"fmt"
)

// Sentinel kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrWrongCredentials   = errors.New("wrong credentials")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrTokenCreation      = errors.New("token creation failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrHash               = errors.New("hash error")
	ErrStorage            = errors.New("storage error")
)

var kinds = []error{
	ErrMissingCredentials,
	ErrWrongCredentials,
	ErrDuplicateKey,
	ErrNotFound,
	ErrInvalidID,
	ErrTokenCreation,
	ErrInvalidToken,
	ErrTokenExpired,
	ErrHash,
	ErrStorage,
}

// Error is an operation error tagged with a kind.
// Err is the underlying cause and may be nil. It must never carry secrets.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// E builds an Error.
func E(op string, kind, err error) error {
	return Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost Error in err's tree. Without one it
// returns the first kind err matches, or ErrStorage for anything unclassified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStorage
}

// Is reports whether err carries kind.
func Is(err, kind error) bool { return errors.Is(err, kind) }
