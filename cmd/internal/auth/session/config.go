package session

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Format selects the wire format of one token kind.
type Format string

const (
	// FormatPASETO signs with PASETO v4.public (Ed25519).
	FormatPASETO Format = "paseto"
	// FormatJWT signs with JWT HS256.
	FormatJWT Format = "jwt"
)

// MinJWTSecretBytes is the minimum HS256 secret size.
const MinJWTSecretBytes = 32

// KeyConfig holds the format, lifetime and key material of one token kind.
type KeyConfig struct {
	Format Format
	TTL    time.Duration

	// Secret is the HS256 secret when Format is FormatJWT.
	Secret string

	// PasetoKeyHex is the hex-encoded v4 secret key when Format is FormatPASETO.
	PasetoKeyHex string
}

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is set as "iss" on every token and required on verification.
	Issuer string

	// ClockSkew is tolerated on expiry and not-before checks.
	ClockSkew time.Duration

	Access  KeyConfig
	Refresh KeyConfig
}

// DefaultConfig returns the default policy without key material.
func DefaultConfig() Config {
	return Config{
		Issuer:    "chai",
		ClockSkew: 30 * time.Second,
		Access: KeyConfig{
			Format: FormatPASETO,
			TTL:    15 * time.Minute,
		},
		Refresh: KeyConfig{
			Format: FormatJWT,
			TTL:    10 * 24 * time.Hour,
		},
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Key material (required for the selected format of each kind):
//   - CHAI_ACCESS_TOKEN_SECRET / CHAI_REFRESH_TOKEN_SECRET (jwt)
//   - CHAI_ACCESS_PASETO_KEY_HEX / CHAI_REFRESH_PASETO_KEY_HEX (paseto)
//
// Optional (durations must be valid Go duration strings):
//   - CHAI_AUTH_ISSUER
//   - CHAI_AUTH_ACCESS_TTL
//   - CHAI_AUTH_REFRESH_TTL
//   - CHAI_AUTH_CLOCK_SKEW
//   - CHAI_AUTH_ACCESS_FORMAT, CHAI_AUTH_REFRESH_FORMAT (paseto|jwt)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("CHAI_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		key       string
		allowZero bool
		dst       *time.Duration
	}{
		{"CHAI_AUTH_ACCESS_TTL", false, &cfg.Access.TTL},
		{"CHAI_AUTH_REFRESH_TTL", false, &cfg.Refresh.TTL},
		{"CHAI_AUTH_CLOCK_SKEW", true, &cfg.ClockSkew},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	for _, f := range []struct {
		key string
		dst *Format
	}{
		{"CHAI_AUTH_ACCESS_FORMAT", &cfg.Access.Format},
		{"CHAI_AUTH_REFRESH_FORMAT", &cfg.Refresh.Format},
	} {
		if v := strings.TrimSpace(os.Getenv(f.key)); v != "" {
			*f.dst = Format(strings.ToLower(v))
		}
	}

	cfg.Access.Secret = os.Getenv("CHAI_ACCESS_TOKEN_SECRET")
	cfg.Refresh.Secret = os.Getenv("CHAI_REFRESH_TOKEN_SECRET")
	cfg.Access.PasetoKeyHex = strings.TrimSpace(os.Getenv("CHAI_ACCESS_PASETO_KEY_HEX"))
	cfg.Refresh.PasetoKeyHex = strings.TrimSpace(os.Getenv("CHAI_REFRESH_PASETO_KEY_HEX"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks formats, lifetimes and key material.
// Access and refresh tokens must never share a key.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Issuer) == "" || c.ClockSkew < 0 {
		return ErrConfig
	}
	for _, k := range []KeyConfig{c.Access, c.Refresh} {
		if k.TTL <= 0 {
			return ErrConfig
		}
		switch k.Format {
		case FormatJWT:
			if len(k.Secret) < MinJWTSecretBytes {
				return ErrConfig
			}
		case FormatPASETO:
			if _, err := paseto.NewV4AsymmetricSecretKeyFromHex(k.PasetoKeyHex); err != nil {
				return ErrConfig
			}
		default:
			return ErrConfig
		}
	}

	// Invariant: a short-lived access token must not outlive the refresh token.
	if c.Access.TTL > c.Refresh.TTL {
		return ErrConfig
	}

	if c.Access.Format == c.Refresh.Format {
		switch c.Access.Format {
		case FormatJWT:
			if c.Access.Secret == c.Refresh.Secret {
				return ErrConfig
			}
		case FormatPASETO:
			if strings.EqualFold(c.Access.PasetoKeyHex, c.Refresh.PasetoKeyHex) {
				return ErrConfig
			}
		}
	}
	return nil
}

// WithEphemeralKeys fills missing key material with freshly generated keys.
// Tokens signed with ephemeral keys do not survive a restart; use it for
// local development and tests only.
func (c Config) WithEphemeralKeys() (Config, error) {
	for _, k := range []*KeyConfig{&c.Access, &c.Refresh} {
		switch k.Format {
		case FormatJWT:
			if k.Secret == "" {
				b := make([]byte, 48)
				if _, err := rand.Read(b); err != nil {
					return Config{}, err
				}
				k.Secret = base64.RawURLEncoding.EncodeToString(b)
			}
		case FormatPASETO:
			if k.PasetoKeyHex == "" {
				k.PasetoKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
			}
		}
	}
	return c, nil
}
