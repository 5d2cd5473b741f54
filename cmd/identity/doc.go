// Package identity owns the user record: identity fields, the stored password
// hash, and the fingerprint of the one refresh token currently issued to the user.
//
// Two Store implementations are provided. MemoryStore backs dev mode and tests;
// PostgresStore persists to the users table created by the embedded migrations.
// Both implement SwapRefreshToken as an atomic compare-and-swap.
package identity
