package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Params are the Argon2id cost parameters used for new hashes.
// MemoryKiB is in KiB as argon2.IDKey expects.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted passwords by rune count. MaxLength also caps the
// KDF input size.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the credential service: Argon2id parameters plus the
// registration policy.
type Config struct {
	Params Params
	Policy Policy
}

// DefaultConfig is 64 MiB, 3 passes, a 16-byte salt and a 32-byte key, with
// one lane per CPU up to 4. Passwords must be 8..256 runes.
func DefaultConfig() Config {
	lanes := min(max(runtime.NumCPU(), 1), 4)
	return Config{
		Params: Params{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(lanes), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{MinLength: 8, MaxLength: 256},
	}
}

// envBound ties one env var to a config field with inclusive limits.
type envBound struct {
	key      string
	min, max uint64
	set      func(*Config, uint64)
}

var envBounds = []envBound{
	{"BFF_PASSWORD_MIN_LEN", 1, 1024, func(c *Config, v uint64) { c.Policy.MinLength = int(v) }},
	{"BFF_PASSWORD_MAX_LEN", 1, 4096, func(c *Config, v uint64) { c.Policy.MaxLength = int(v) }},
	{"BFF_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, func(c *Config, v uint64) { c.Params.MemoryKiB = uint32(v) }},
	{"BFF_ARGON2_ITERATIONS", 1, 20, func(c *Config, v uint64) { c.Params.Iterations = uint32(v) }},
	{"BFF_ARGON2_PARALLELISM", 1, 64, func(c *Config, v uint64) { c.Params.Parallelism = uint8(v) }},
	{"BFF_ARGON2_SALT_LEN", 8, 64, func(c *Config, v uint64) { c.Params.SaltLength = uint32(v) }},
	{"BFF_ARGON2_KEY_LEN", 16, 64, func(c *Config, v uint64) { c.Params.KeyLength = uint32(v) }},
}

// FromEnv applies BFF_PASSWORD_MIN_LEN, BFF_PASSWORD_MAX_LEN and the
// BFF_ARGON2_* overrides on top of DefaultConfig. Unset keys keep defaults.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	for _, b := range envBounds {
		raw, ok := os.LookupEnv(b.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%s: not an unsigned integer", b.key)
		}
		if v < b.min || v > b.max {
			return Config{}, fmt.Errorf("%s: out of range [%d..%d]", b.key, b.min, b.max)
		}
		b.set(&cfg, v)
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf("password policy: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength, cfg.Policy.MaxLength)
	}
	return cfg, nil
}
