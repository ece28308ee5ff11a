package session

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Keys is the process-wide Ed25519 keypair. It is immutable after ParseKeys.
type Keys struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// ParseKeys parses the configured PEM material. A supplied public key must
// match the private key.
func ParseKeys(cfg Config) (Keys, error) {
	if len(cfg.PrivateKeyPEM) == 0 {
		return Keys{}, fmt.Errorf("%w: missing private key", ErrConfig)
	}

	sk, err := jwt.ParseEdPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: private key: %v", ErrConfig, err)
	}
	priv, ok := sk.(ed25519.PrivateKey)
	if !ok {
		return Keys{}, fmt.Errorf("%w: private key is not ed25519", ErrConfig)
	}
	derived, _ := priv.Public().(ed25519.PublicKey)

	if len(cfg.PublicKeyPEM) == 0 {
		return Keys{private: priv, public: derived}, nil
	}

	pk, err := jwt.ParseEdPublicKeyFromPEM(cfg.PublicKeyPEM)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: public key: %v", ErrConfig, err)
	}
	pub, ok := pk.(ed25519.PublicKey)
	if !ok {
		return Keys{}, fmt.Errorf("%w: public key is not ed25519", ErrConfig)
	}
	if !bytes.Equal(pub, derived) {
		return Keys{}, fmt.Errorf("%w: public key does not match private key", ErrConfig)
	}

	return Keys{private: priv, public: pub}, nil
}
