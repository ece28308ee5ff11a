package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration

	DatabaseURL    string
	DBSchema       string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// RedisURL switches the refresh-token store to Redis when set.
	RedisURL    string
	RedisPrefix string

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// RefreshRetention bounds how long token records are kept after creation.
	RefreshRetention time.Duration
	PurgeInterval    time.Duration

	VerifyEmailTTL time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("BFF_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BFF_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("BFF_LOG_FORMAT", "json")),

		ReadHeaderTimeout: EnvDuration("BFF_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BFF_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BFF_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BFF_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("BFF_HTTP_MAX_HEADER_BYTES", 1<<20),
		ShutdownTimeout:   EnvDuration("BFF_SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseURL:    EnvString("BFF_DATABASE_URL", ""),
		DBSchema:       EnvString("BFF_DB_SCHEMA", "public"),
		DBMaxConns:     EnvInt32("BFF_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("BFF_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("BFF_DB_MIGRATE", true),

		RedisURL:    EnvString("BFF_REDIS_URL", ""),
		RedisPrefix: EnvString("BFF_REDIS_PREFIX", "bff"),

		ReadinessRequireDB: EnvBool("BFF_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvList("BFF_FRONTEND_URL"),
		CORSAllowCredentials: EnvBool("BFF_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("BFF_CORS_MAX_AGE", 600),

		RefreshRetention: EnvDuration("BFF_TOKEN_RETENTION", 30*24*time.Hour),
		PurgeInterval:    EnvDuration("BFF_PURGE_INTERVAL", time.Hour),

		VerifyEmailTTL: EnvDuration("BFF_VERIFY_EMAIL_TTL", time.Hour),
	}
}
