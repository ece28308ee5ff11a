package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"bff/cmd/internal/auth/autherr"

	"golang.org/x/crypto/argon2"
)

// Hash derives an Argon2id key with a fresh salt and returns its PHC
// encoding. Any plaintext is accepted; the only failures are unusable
// parameters or the RNG, both reported as autherr.ErrHash.
func (c Config) Hash(plaintext string) (string, error) {
	const op = "password.Hash"

	if err := c.Params.check(); err != nil {
		return "", autherr.E(op, autherr.ErrHash, err)
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", autherr.E(op, autherr.ErrHash, fmt.Errorf("salt: %w", err))
	}

	return phc{
		memoryKiB:   c.Params.MemoryKiB,
		iterations:  c.Params.Iterations,
		parallelism: c.Params.Parallelism,
		salt:        salt,
		key: argon2.IDKey([]byte(plaintext), salt,
			c.Params.Iterations, c.Params.MemoryKiB, c.Params.Parallelism, c.Params.KeyLength),
	}.String(), nil
}

// Verify recomputes the key for plaintext and compares in constant time.
// It returns nil on a match, ErrMismatch on a wrong password and
// ErrInvalidHash when the stored hash cannot be used.
func (c Config) Verify(encoded, plaintext string) error {
	p, err := parsePHC(encoded)
	if err != nil {
		return err
	}
	if !p.affordable(c.Params) {
		return ErrInvalidHash
	}

	got := argon2.IDKey([]byte(plaintext), p.salt,
		p.iterations, p.memoryKiB, p.parallelism,
		uint32(len(p.key))) // #nosec G115 -- bounded by affordable.
	if subtle.ConstantTimeCompare(got, p.key) != 1 {
		return ErrMismatch
	}
	return nil
}

func (p Params) check() error {
	switch {
	case p.MemoryKiB == 0, p.Iterations == 0, p.Parallelism == 0:
		return errors.New("argon2 cost parameters must be positive")
	case p.SaltLength < 8:
		return errors.New("salt shorter than 8 bytes")
	case p.KeyLength < 16:
		return errors.New("key shorter than 16 bytes")
	}
	return nil
}
