package session

import (
	"encoding/base64"
	"os"
	"strings"
	"time"
)

// Config defines runtime configuration for the token lifecycle.
type Config struct {
	// Issuer and Audience are set on every token and enforced on decode.
	Issuer   string
	Audience string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// ReuseGrace is how long after first use a resubmitted refresh token is
	// treated as a benign duplicate rather than a replay.
	ReuseGrace time.Duration

	// ClockSkew is the leeway applied to exp/iat during decode.
	ClockSkew time.Duration

	// PrivateKeyPEM / PublicKeyPEM hold the Ed25519 keypair in PEM form.
	// PublicKeyPEM may be empty; it is then derived from the private key.
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
}

// DefaultConfig returns defaults without key material.
func DefaultConfig() Config {
	return Config{
		Issuer:          "bff",
		Audience:        "bff",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ReuseGrace:      90 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - JWT_PRIVATE_KEY (base64 of a PKCS#8 PEM, or the PEM itself)
//
// Optional:
//   - JWT_PUBLIC_KEY (base64 PEM or PEM)
//   - JWT_ISSUER, JWT_AUDIENCE
//   - BFF_AUTH_ACCESS_TTL, BFF_AUTH_REFRESH_TTL, BFF_AUTH_REUSE_GRACE, BFF_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_AUDIENCE")); v != "" {
		cfg.Audience = v
	}

	var err error
	if cfg.AccessTokenTTL, err = envPositiveDuration("BFF_AUTH_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = envPositiveDuration("BFF_AUTH_REFRESH_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReuseGrace, err = envPositiveDuration("BFF_AUTH_REUSE_GRACE", cfg.ReuseGrace); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("BFF_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	priv, err := decodeKeyMaterial(os.Getenv("JWT_PRIVATE_KEY"))
	if err != nil || len(priv) == 0 {
		return Config{}, ErrConfig
	}
	cfg.PrivateKeyPEM = priv

	pub, err := decodeKeyMaterial(os.Getenv("JWT_PUBLIC_KEY"))
	if err != nil {
		return Config{}, ErrConfig
	}
	cfg.PublicKeyPEM = pub

	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

func envPositiveDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, ErrConfig
	}
	return d, nil
}

// decodeKeyMaterial accepts either a raw PEM block or its base64 encoding.
func decodeKeyMaterial(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "-----BEGIN") {
		return []byte(raw), nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return b, nil
}
