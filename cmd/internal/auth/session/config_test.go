package session

import (
	"strings"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

const (
	testAccessSecret  = "access-secret-access-secret-access-secret"
	testRefreshSecret = "refresh-secret-refresh-secret-refresh-secret"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHAI_ACCESS_PASETO_KEY_HEX", paseto.NewV4AsymmetricSecretKey().ExportHex())
	t.Setenv("CHAI_REFRESH_TOKEN_SECRET", testRefreshSecret)
}

func TestLoadConfigFromEnv_MissingKeys(t *testing.T) {
	t.Setenv("CHAI_ACCESS_PASETO_KEY_HEX", "")
	t.Setenv("CHAI_REFRESH_TOKEN_SECRET", "")
	_, err := LoadConfigFromEnv()
	if err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing keys, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	cases := map[string]string{
		"CHAI_AUTH_ACCESS_TTL":  "-5m",
		"CHAI_AUTH_REFRESH_TTL": "0s",
		"CHAI_AUTH_CLOCK_SKEW":  "soon",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(key, val)
			if _, err := LoadConfigFromEnv(); err != ErrConfig {
				t.Fatalf("expected ErrConfig for %s=%q, got %v", key, val, err)
			}
		})
	}
}

func TestLoadConfigFromEnv_AccessOutlivesRefresh(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CHAI_AUTH_ACCESS_TTL", "72h")
	t.Setenv("CHAI_AUTH_REFRESH_TTL", "24h")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for ttl order, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortJWTSecret(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CHAI_REFRESH_TOKEN_SECRET", "too-short")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for short secret, got %v", err)
	}
}

func TestLoadConfigFromEnv_SharedKeyRejected(t *testing.T) {
	t.Setenv("CHAI_AUTH_ACCESS_FORMAT", "jwt")
	t.Setenv("CHAI_AUTH_REFRESH_FORMAT", "jwt")
	t.Setenv("CHAI_ACCESS_TOKEN_SECRET", testRefreshSecret)
	t.Setenv("CHAI_REFRESH_TOKEN_SECRET", testRefreshSecret)
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for shared key, got %v", err)
	}

	hex := paseto.NewV4AsymmetricSecretKey().ExportHex()
	t.Setenv("CHAI_AUTH_ACCESS_FORMAT", "paseto")
	t.Setenv("CHAI_AUTH_REFRESH_FORMAT", "PASETO")
	t.Setenv("CHAI_ACCESS_PASETO_KEY_HEX", hex)
	t.Setenv("CHAI_REFRESH_PASETO_KEY_HEX", strings.ToUpper(hex))
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for shared paseto key, got %v", err)
	}
}

func TestLoadConfigFromEnv_UnknownFormat(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CHAI_AUTH_ACCESS_FORMAT", "saml")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for unknown format, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CHAI_AUTH_ISSUER", "chai-test")
	t.Setenv("CHAI_AUTH_ACCESS_TTL", "10m")
	t.Setenv("CHAI_AUTH_REFRESH_TTL", "48h")
	t.Setenv("CHAI_AUTH_CLOCK_SKEW", "20s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Issuer != "chai-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.Access.TTL != 10*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.Access.TTL)
	}
	if cfg.Refresh.TTL != 48*time.Hour {
		t.Fatalf("refresh ttl mismatch: %v", cfg.Refresh.TTL)
	}
	if cfg.ClockSkew != 20*time.Second {
		t.Fatalf("clock skew mismatch: %v", cfg.ClockSkew)
	}
	if cfg.Access.Format != FormatPASETO || cfg.Refresh.Format != FormatJWT {
		t.Fatalf("unexpected formats: %q/%q", cfg.Access.Format, cfg.Refresh.Format)
	}
}

func TestDefaultConfig_WithEphemeralKeys(t *testing.T) {
	cfg, err := DefaultConfig().WithEphemeralKeys()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	// Explicit keys are kept.
	in := DefaultConfig()
	in.Refresh.Secret = testRefreshSecret
	out, err := in.WithEphemeralKeys()
	if err != nil {
		t.Fatalf("ephemeral keys: %v", err)
	}
	if out.Refresh.Secret != testRefreshSecret {
		t.Fatalf("explicit secret was replaced")
	}
}
