package identity

import (
	"strings"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/identity/ids"
)

// User is the stored account record.
//
// PasswordHash and RefreshTokenHash never leave the server; use Public for
// anything returned to a client.
type User struct {
	ID        string
	Username  string // lower-case, trimmed
	Email     string
	EmailNorm string
	FullName  string

	PasswordHash string

	// RefreshTokenHash is the fingerprint of the single refresh token currently
	// issued to this user, or "" when there is none.
	RefreshTokenHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the redacted view of a User.
type PublicUser struct {
	ID        string
	Username  string
	Email     string
	FullName  string
	CreatedAt time.Time
}

// Public strips the password hash and refresh fingerprint.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

// CreateUserInput describes a registration. PasswordHash is already encoded;
// the store never sees the plain secret.
type CreateUserInput struct {
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

const (
	maxUsernameLen = 64
	maxEmailLen    = 254
	maxFullNameLen = 128
)

// newUser validates in and builds the record both stores insert.
func newUser(op string, in CreateUserInput) (User, error) {
	fullName := strings.TrimSpace(in.FullName)
	username := NormalizeUsername(in.Username)
	email := strings.TrimSpace(in.Email)

	switch {
	case fullName == "" || username == "" || email == "":
		return User{}, invalid(op, "full name, username and email are required")
	case strings.TrimSpace(in.PasswordHash) == "":
		return User{}, invalid(op, "password hash is required")
	case len(username) > maxUsernameLen || strings.ContainsAny(username, "@ \t\r\n"):
		return User{}, invalid(op, "invalid username")
	case len(email) > maxEmailLen || !strings.Contains(email, "@"):
		return User{}, invalid(op, "invalid email")
	case len(fullName) > maxFullNameLen:
		return User{}, invalid(op, "full name too long")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	return User{
		ID:           id,
		Username:     username,
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		FullName:     fullName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
