package session

import "errors"

// Session lifecycle error kinds. Returned errors wrap one of these together
// with the underlying cause, so match them with errors.Is.
var (
	// ErrNotFound is returned by Login when no user has the given identifier.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned by Login when the secret does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken is returned when a token fails verification or names an unknown user.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenReused is returned when a verified refresh token is not the user's current one.
	ErrTokenReused = errors.New("refresh token reused")

	// ErrSessionPersist is returned when the refresh fingerprint could not be written.
	// No credentials are returned alongside it.
	ErrSessionPersist = errors.New("session persist failed")

	// ErrUserStore is returned when a user lookup fails for reasons other than absence.
	ErrUserStore = errors.New("user store failure")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Token verification failures. Issuer.Verify returns exactly one of these.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

// Outcome names the error kind of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrTokenReused):
		return "token_reused"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrSessionPersist):
		return "persist_failed"
	case errors.Is(err, ErrUserStore):
		return "store_failed"
	default:
		return "error"
	}
}
