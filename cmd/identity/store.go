package identity

import "context"

// Store is the user-record persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// FindByAlternateKey looks a user up by username or email.
	FindByAlternateKey(ctx context.Context, identifier string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)

	// SetRefreshToken overwrites the stored refresh fingerprint unconditionally.
	// An empty fingerprint clears it.
	SetRefreshToken(ctx context.Context, id, fingerprint string) error

	// SwapRefreshToken replaces expected with next only if expected is still
	// the stored fingerprint. It reports whether the swap happened.
	//
	// The compare and the write are atomic with respect to every other
	// refresh-token write for the same user. An empty expected never swaps.
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
