package session

import (
	"errors"
	"fmt"

	"bff/cmd/internal/auth/autherr"
)

var (
	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")

	// ErrDuplicateJTI is returned by Store.Create on a jti collision.
	ErrDuplicateJTI = fmt.Errorf("%w: jti", autherr.ErrDuplicateKey)

	// ErrRecordNotFound is returned when no refresh record matches a jti.
	ErrRecordNotFound = fmt.Errorf("%w: refresh record", autherr.ErrNotFound)

	// Causes behind an InvalidToken result. They are logged, never surfaced.
	errDuplicateSubmission = errors.New("refresh token resubmitted within grace window")
	errReplayDetected      = errors.New("refresh token replayed after grace window")
	errInconsistentRecord  = errors.New("revoked refresh record without used_at")
	errWrongTokenUse       = errors.New("token is not a refresh token")
)
