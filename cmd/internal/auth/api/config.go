package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API transport behavior.
type Config struct {
	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:   envBool("BFF_AUTH_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("BFF_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
