package password

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, b := range envBounds {
		// Setenv registers the restore; the key must then be truly unset.
		t.Setenv(b.key, "")
		require.NoError(t, os.Unsetenv(b.key))
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BFF_PASSWORD_MIN_LEN", "10")
	t.Setenv("BFF_PASSWORD_MAX_LEN", "200")
	t.Setenv("BFF_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("BFF_ARGON2_ITERATIONS", "4")
	t.Setenv("BFF_ARGON2_PARALLELISM", "2")
	t.Setenv("BFF_ARGON2_SALT_LEN", "24")
	t.Setenv("BFF_ARGON2_KEY_LEN", "48")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Policy{MinLength: 10, MaxLength: 200}, cfg.Policy)
	assert.Equal(t, Params{MemoryKiB: 32768, Iterations: 4, Parallelism: 2, SaltLength: 24, KeyLength: 48}, cfg.Params)
}

func TestFromEnv_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"not a number": {"BFF_ARGON2_ITERATIONS", "three"},
		"below range":  {"BFF_ARGON2_MEMORY_KIB", "1024"},
		"above range":  {"BFF_ARGON2_SALT_LEN", "65"},
		"negative":     {"BFF_PASSWORD_MIN_LEN", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), kv[0])
		})
	}
}

func TestFromEnv_MinAboveMax(t *testing.T) {
	t.Setenv("BFF_PASSWORD_MIN_LEN", "20")
	t.Setenv("BFF_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	assert.Error(t, err)
}
