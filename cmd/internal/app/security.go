package app

import (
	"errors"
	"fmt"

	"bff/cmd/internal/auth/session"
	"bff/cmd/security/password"
)

// ErrSecurityConfig marks a startup configuration the service refuses to run with.
var ErrSecurityConfig = errors.New("security policy")

// ValidateSecurityConfig enforces the token and password policy at startup.
// It fails fast rather than running with weaker settings.
func ValidateSecurityConfig(sc session.Config, pw password.Config) error {
	if _, err := session.ParseKeys(sc); err != nil {
		return fmt.Errorf("%w: JWT keypair: %w", ErrSecurityConfig, err)
	}
	if sc.AccessTokenTTL >= sc.RefreshTokenTTL {
		return fmt.Errorf("%w: access token TTL must be shorter than refresh token TTL", ErrSecurityConfig)
	}
	if sc.ReuseGrace >= sc.RefreshTokenTTL {
		return fmt.Errorf("%w: reuse grace must be shorter than refresh token TTL", ErrSecurityConfig)
	}
	if pw.Policy.MinLength < 8 {
		return fmt.Errorf("%w: password minimum length below 8", ErrSecurityConfig)
	}
	return nil
}
