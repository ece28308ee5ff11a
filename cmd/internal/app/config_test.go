package app

import (
	"slices"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"BFF_HTTP_ADDR", "BFF_DATABASE_URL", "BFF_REDIS_URL", "BFF_FRONTEND_URL", "BFF_DB_MIGRATE", "BFF_TOKEN_RETENTION"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected no backing services by default: %+v", cfg)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("expected migrations on start by default")
	}
	if cfg.RefreshRetention != 30*24*time.Hour {
		t.Fatalf("RefreshRetention=%v", cfg.RefreshRetention)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BFF_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("BFF_LOG_FORMAT", "PRETTY")
	t.Setenv("BFF_FRONTEND_URL", "https://app.example.com, ,http://127.0.0.1:*")
	t.Setenv("BFF_DB_MAX_CONNS", "25")
	t.Setenv("BFF_PURGE_INTERVAL", "5m")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.LogFormat != "pretty" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !slices.Equal(cfg.CORSAllowedOrigins, []string{"https://app.example.com", "http://127.0.0.1:*"}) {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
	if cfg.DBMaxConns != 25 || cfg.PurgeInterval != 5*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestEnvHelpers_InvalidFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "nope")
	t.Setenv("X_INT", "-3")
	t.Setenv("X_INT32", "99999999999")
	t.Setenv("X_DUR", "soon")

	if EnvBool("X_BOOL", true) != true {
		t.Fatalf("EnvBool fallback")
	}
	if EnvInt("X_INT", 7) != 7 {
		t.Fatalf("EnvInt fallback")
	}
	if EnvInt32("X_INT32", 3) != 3 {
		t.Fatalf("EnvInt32 fallback")
	}
	if EnvDuration("X_DUR", time.Second) != time.Second {
		t.Fatalf("EnvDuration fallback")
	}
}
