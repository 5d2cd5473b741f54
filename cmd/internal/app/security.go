package app

import (
	"errors"

	"github.com/ameynaysathe/chai-backend/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy and returns the
// refresh-token fingerprinter the session manager should use.
//
// With RequireTokenHMAC set, a missing or short CHAI_TOKEN_HMAC_KEY is fatal;
// the server never falls back to plain SHA-256 under that policy.
func ValidateSecurityConfig(cfg Config) (token.Hasher, error) {
	h, err := token.HasherFromEnv(cfg.RequireTokenHMAC)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrHMACKeyMissing):
		return token.Hasher{}, errors.New("security policy: CHAI_REQUIRE_TOKEN_HMAC=true but CHAI_TOKEN_HMAC_KEY is missing")
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.Hasher{}, errors.New("security policy: CHAI_TOKEN_HMAC_KEY is too short (min 32 bytes)")
	default:
		return token.Hasher{}, err
	}

	if cfg.RequireTokenHMAC && !h.HMAC() {
		return token.Hasher{}, errors.New("security policy: CHAI_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
