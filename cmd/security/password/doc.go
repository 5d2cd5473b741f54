// Package password hashes and verifies user secrets.
//
// New hashes are always Argon2id in the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Verifier also accepts bcrypt hashes ($2a$, $2b$, $2y$) carried over from
// older account stores, and reports them through NeedsRehash.
//
// Hash strings are untrusted input during verification: Argon2id parameters
// far above the configured cost are refused instead of computed.
package password
