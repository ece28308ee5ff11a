package authapi

import (
	"errors"
	"net/http"

	"bff/cmd/identity"
	"bff/cmd/internal/auth/autherr"
)

// writeServiceError maps an error kind to its HTTP status and stable code.
// The underlying cause never reaches the client.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := autherr.KindOf(err)

	switch {
	case errors.Is(kind, autherr.ErrWrongCredentials):
		writeError(w, http.StatusUnauthorized, "wrong_credentials", "wrong credentials")
	case errors.Is(kind, autherr.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "missing_credentials", "missing credentials")
	case errors.Is(kind, autherr.ErrTokenCreation):
		writeError(w, http.StatusInternalServerError, "token_creation", "token creation failed")
	case errors.Is(kind, autherr.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
	case errors.Is(kind, autherr.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired", "token expired")
	case errors.Is(kind, autherr.ErrDuplicateKey):
		msg := "resource already exists"
		if field, ok := identity.ConflictField(err); ok && field != "" {
			msg = field + " already exists"
		}
		writeError(w, http.StatusConflict, "duplicate_key", msg)
	case errors.Is(kind, autherr.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
	case errors.Is(kind, autherr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(kind, autherr.ErrHash):
		writeError(w, http.StatusNotAcceptable, "hash_error", "hash error")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
