package password

import "errors"

// Policy violations returned by Validate and Hash.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrWeakPassword     = errors.New("weak password")
)

// ErrInvalidHash is returned by Verify for malformed, unsupported or
// over-budget stored hashes.
var ErrInvalidHash = errors.New("invalid password hash")
