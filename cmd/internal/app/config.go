package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // json | pretty | auto

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Empty DatabaseURL selects the in-memory user store.
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, CHAI_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and refresh-token fingerprints must be HMAC-based.
	RequireTokenHMAC bool

	// DevKeys generates throwaway signing keys when none are configured.
	DevKeys bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CHAI_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("CHAI_LOG_LEVEL", "info"),
		LogFormat: EnvString("CHAI_LOG_FORMAT", "auto"),

		ReadHeaderTimeout: EnvDuration("CHAI_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CHAI_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CHAI_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CHAI_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CHAI_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("CHAI_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("CHAI_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("CHAI_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("CHAI_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("CHAI_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("CHAI_REQUIRE_TOKEN_HMAC", false),
		DevKeys:          EnvBool("CHAI_AUTH_DEV_KEYS", false),

		CORSAllowedOrigins:   EnvList("CHAI_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("CHAI_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("CHAI_CORS_MAX_AGE_SECONDS", 600),

		MetricsEnabled: EnvBool("CHAI_METRICS_ENABLED", true),
	}
}
