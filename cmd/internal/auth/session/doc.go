// Package session implements the authentication session lifecycle.
//
// A user holds at most one live refresh token. Login mints an access/refresh
// pair and records the refresh token's fingerprint on the user record.
// Refresh verifies the presented token, compares it with the recorded
// fingerprint, and rotates it with an atomic compare-and-swap, so a token
// works once and a replayed token fails with ErrTokenReused. Logout clears
// the fingerprint.
//
// Access and refresh tokens are signed with separate keys and have separate
// TTLs. Each kind can be PASETO v4.public or JWT HS256.
//
// Transport (cookies, headers, status codes) lives in package authapi.
package session
