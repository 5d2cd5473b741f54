package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var b64 = base64.RawStdEncoding

// phc is a parsed "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.params.MemoryKiB, p.params.Iterations, p.params.Parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

// Hash validates password against the policy and returns its Argon2id PHC string.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.HashUnchecked(password)
}

// HashUnchecked returns the Argon2id PHC string for secret without applying
// the policy. It is meant for server-generated secrets, never user input.
func (c Config) HashUnchecked(secret string) (string, error) {
	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	out := phc{params: c.Params, salt: salt}
	out.key = derive(secret, out.params, salt)
	return out.String(), nil
}

// Verify checks whether password matches an Argon2id PHC string.
// A mismatch is (false, nil); malformed or over-budget hashes are (false, ErrInvalidHash).
func (c Config) Verify(encodedHash, password string) (bool, error) {
	stored, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	// Cost parameters come from storage and must not drive resource usage.
	if !stored.params.within(c.Params) {
		return false, ErrInvalidHash
	}

	got := derive(password, stored.params, stored.salt)
	return subtle.ConstantTimeCompare(got, stored.key) == 1, nil
}

func derive(password string, p Argon2idParams, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
}

// within accepts older or cheaper settings and rejects anything more than
// twice the configured cost.
func (p Argon2idParams) within(limit Argon2idParams) bool {
	return p.MemoryKiB <= limit.MemoryKiB*2 &&
		p.Iterations <= limit.Iterations*2 &&
		uint32(p.Parallelism) <= uint32(limit.Parallelism)*2 &&
		p.SaltLength >= 8 && p.SaltLength <= 64 &&
		p.KeyLength >= 16 && p.KeyLength <= 128
}

func parsePHC(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" ||
		parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, ErrInvalidHash
	}

	var mem, it, par uint32
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil || n != 3 {
		return phc{}, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return phc{}, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return phc{}, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return phc{}, ErrInvalidHash
	}

	return phc{
		params: Argon2idParams{
			MemoryKiB:   mem,
			Iterations:  it,
			Parallelism: uint8(par),        // #nosec G115 -- checked <= 255 above.
			SaltLength:  uint32(len(salt)), // #nosec G115 -- bounded by within before use.
			KeyLength:   uint32(len(key)),  // #nosec G115 -- bounded by within before use.
		},
		salt: salt,
		key:  key,
	}, nil
}
