package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the fingerprint HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "CHAI_TOKEN_HMAC_KEY"

	// MinHMACKeyBytes is the minimum key size accepted under the HMAC policy.
	MinHMACKeyBytes = 32

	fingerprintLen = 64
)

// Errors returned while loading the HMAC key.
var (
	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")
)

// Hasher derives storage fingerprints from refresh tokens.
// The zero value is a valid SHA-256 hasher.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. A nil or empty key selects plain SHA-256.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	return Hasher{key: append([]byte(nil), key...)}
}

// HasherFromEnv builds a Hasher from CHAI_TOKEN_HMAC_KEY.
// With requireHMAC set, a missing or short key is an error instead of a SHA-256 fallback.
func HasherFromEnv(requireHMAC bool) (Hasher, error) {
	key, err := HMACKeyFromEnv(MinHMACKeyBytes)
	switch {
	case err == nil:
		return NewHasher(key), nil
	case requireHMAC:
		return Hasher{}, err
	case errors.Is(err, ErrHMACKeyTooShort):
		// A configured but weak key is never silently ignored.
		return Hasher{}, err
	default:
		return Hasher{}, nil
	}
}

// HMAC reports whether the hasher is keyed.
func (h Hasher) HMAC() bool { return len(h.key) > 0 }

// Fingerprint returns the 64-char hex fingerprint of tok.
// An empty token has an empty fingerprint so that "absent" stays absent.
func (h Hasher) Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	if len(h.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, h.key)
}

// Matches reports whether tok fingerprints to stored.
func (h Hasher) Matches(tok, stored string) bool {
	return Equal(h.Fingerprint(tok), stored)
}

// Equal compares two fingerprints in constant time.
// Anything that is not a 64-char fingerprint never matches, including two empty values.
func Equal(a, b string) bool {
	if len(a) != fingerprintLen || len(b) != fingerprintLen {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}
