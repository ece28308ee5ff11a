package authapi

import "testing"

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("BFF_AUTH_TRUST_PROXY", "")
	t.Setenv("BFF_AUTH_MAX_BODY_BYTES", "")

	cfg := LoadConfigFromEnv()
	if cfg.TrustProxy {
		t.Fatalf("expected TrustProxy=false by default")
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes=%d", cfg.MaxBodyBytes)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("BFF_AUTH_TRUST_PROXY", "true")
	t.Setenv("BFF_AUTH_MAX_BODY_BYTES", "4096")

	cfg := LoadConfigFromEnv()
	if !cfg.TrustProxy || cfg.MaxBodyBytes != 4096 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("BFF_AUTH_TRUST_PROXY", "maybe")
	t.Setenv("BFF_AUTH_MAX_BODY_BYTES", "-1")

	cfg := LoadConfigFromEnv()
	if cfg.TrustProxy || cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
