package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks presented secrets against stored hashes.
// It is stateless apart from its Argon2id bounds and safe for concurrent use.
type Verifier struct {
	cfg Config
}

// NewVerifier returns a Verifier that refuses Argon2id hashes far above cfg's cost.
func NewVerifier(cfg Config) Verifier {
	return Verifier{cfg: cfg}
}

// Matches reports whether secret matches storedHash.
// Malformed, empty or unsupported hashes never match.
func (v Verifier) Matches(secret, storedHash string) bool {
	switch hashScheme(storedHash) {
	case schemeArgon2id:
		ok, err := v.cfg.Verify(storedHash, secret)
		return err == nil && ok
	case schemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether storedHash uses a legacy scheme.
func (v Verifier) NeedsRehash(storedHash string) bool {
	return hashScheme(storedHash) == schemeBcrypt
}

type scheme int

const (
	schemeUnknown scheme = iota
	schemeArgon2id
	schemeBcrypt
)

func hashScheme(h string) scheme {
	switch {
	case strings.HasPrefix(h, "$argon2id$"):
		return schemeArgon2id
	case strings.HasPrefix(h, "$2a$"), strings.HasPrefix(h, "$2b$"), strings.HasPrefix(h, "$2y$"):
		return schemeBcrypt
	default:
		return schemeUnknown
	}
}
