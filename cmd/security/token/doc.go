// Package token fingerprints refresh tokens for server-side storage.
//
// The user record never holds a refresh token in plaintext. It holds a
// 64-char hex fingerprint:
// - SHA-256(token) when no HMAC key is configured (dev mode).
// - HMAC-SHA256(token, key) when CHAI_TOKEN_HMAC_KEY is set.
//
// Fingerprints are compared with Equal, which runs in constant time.
package token
