package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// CookieOptions are the attributes applied to both session cookies.
type CookieOptions struct {
	// HTTPOnly hides the cookie from scripts.
	HTTPOnly bool
	// Secure restricts the cookie to TLS.
	Secure bool
	// SameSite is the cross-site send policy.
	SameSite http.SameSite
	Path     string
	Domain   string
}

// Config controls auth API behavior and security defaults.
type Config struct {
	Cookies           CookieOptions
	AccessCookieName  string
	RefreshCookieName string

	TrustProxy   bool
	MaxBodyBytes int64

	LoginIPMax    int
	LoginIPWindow time.Duration

	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration
}

// DefaultConfig returns the policy used when no env overrides are present.
func DefaultConfig() Config {
	return Config{
		Cookies: CookieOptions{
			HTTPOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
		},
		AccessCookieName:       "accessToken",
		RefreshCookieName:      "refreshToken",
		MaxBodyBytes:           1 << 20, // 1 MiB
		LoginIPMax:             20,
		LoginIPWindow:          5 * time.Minute,
		LockoutShortThreshold:  5,
		LockoutShortDuration:   5 * time.Minute,
		LockoutLongThreshold:   10,
		LockoutLongDuration:    30 * time.Minute,
		LockoutSevereThreshold: 20,
		LockoutSevereDuration:  2 * time.Hour,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		Cookies: CookieOptions{
			HTTPOnly: def.Cookies.HTTPOnly,
			Secure:   envBool("CHAI_COOKIE_SECURE", def.Cookies.Secure),
			SameSite: parseSameSite(os.Getenv("CHAI_COOKIE_SAMESITE")),
			Path:     envString("CHAI_COOKIE_PATH", def.Cookies.Path),
			Domain:   envString("CHAI_COOKIE_DOMAIN", ""),
		},
		AccessCookieName:       envString("CHAI_AUTH_ACCESS_COOKIE_NAME", def.AccessCookieName),
		RefreshCookieName:      envString("CHAI_AUTH_REFRESH_COOKIE_NAME", def.RefreshCookieName),
		TrustProxy:             envBool("CHAI_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:           envInt64("CHAI_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		LoginIPMax:             envInt("CHAI_AUTH_LOGIN_IP_MAX", def.LoginIPMax),
		LoginIPWindow:          envDuration("CHAI_AUTH_LOGIN_IP_WINDOW", def.LoginIPWindow),
		LockoutShortThreshold:  envInt("CHAI_AUTH_LOGIN_LOCKOUT_SHORT_THRESHOLD", def.LockoutShortThreshold),
		LockoutShortDuration:   envDuration("CHAI_AUTH_LOGIN_LOCKOUT_SHORT_DURATION", def.LockoutShortDuration),
		LockoutLongThreshold:   envInt("CHAI_AUTH_LOGIN_LOCKOUT_LONG_THRESHOLD", def.LockoutLongThreshold),
		LockoutLongDuration:    envDuration("CHAI_AUTH_LOGIN_LOCKOUT_LONG_DURATION", def.LockoutLongDuration),
		LockoutSevereThreshold: envInt("CHAI_AUTH_LOGIN_LOCKOUT_SEVERE_THRESHOLD", def.LockoutSevereThreshold),
		LockoutSevereDuration:  envDuration("CHAI_AUTH_LOGIN_LOCKOUT_SEVERE_DURATION", def.LockoutSevereDuration),
	}

	// Browsers drop SameSite=None cookies that are not Secure.
	if cfg.Cookies.SameSite == http.SameSiteNoneMode {
		cfg.Cookies.Secure = true
	}
	if cfg.AccessCookieName == cfg.RefreshCookieName {
		cfg.AccessCookieName = def.AccessCookieName
		cfg.RefreshCookieName = def.RefreshCookieName
	}

	return cfg
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
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

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
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

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
