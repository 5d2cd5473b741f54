package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/identity/ids"
)

// MemoryStore is an in-process Store used in dev mode and tests.
// A single mutex serializes every write, which makes SwapRefreshToken atomic.
type MemoryStore struct {
	mu sync.Mutex

	byID       map[string]*User
	byUsername map[string]string
	byEmail    map[string]string

	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser inserts a new user. Username and email are unique case-insensitively.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.MemoryStore.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	u, err := newUser(op, in)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := s.byEmail[u.EmailNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	cp := u
	s.byID[u.ID] = &cp
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.EmailNorm] = u.ID
	return u, nil
}

// FindByAlternateKey returns the user whose username or email equals identifier.
func (s *MemoryStore) FindByAlternateKey(ctx context.Context, identifier string) (User, error) {
	const op = "identity.MemoryStore.FindByAlternateKey"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	key := NormalizeIdentifier(identifier)
	if key == "" {
		return User{}, invalid(op, "missing identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[key]
	if !ok {
		id, ok = s.byEmail[key]
	}
	if !ok {
		return User{}, userNotFound(op)
	}
	return *s.byID[id], nil
}

// FindByID returns the user with the given id.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (User, error) {
	const op = "identity.MemoryStore.FindByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return User{}, userNotFound(op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, userNotFound(op)
	}
	return *u, nil
}

// SetRefreshToken overwrites the stored fingerprint; "" clears it.
func (s *MemoryStore) SetRefreshToken(ctx context.Context, id, fingerprint string) error {
	const op = "identity.MemoryStore.SetRefreshToken"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return userNotFound(op)
	}
	u.RefreshTokenHash = fingerprint
	u.UpdatedAt = s.now()
	return nil
}

// SwapRefreshToken replaces expected with next while holding the store lock.
func (s *MemoryStore) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	const op = "identity.MemoryStore.SwapRefreshToken"

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if expected == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return false, userNotFound(op)
	}
	if u.RefreshTokenHash != expected {
		return false, nil
	}
	u.RefreshTokenHash = next
	u.UpdatedAt = s.now()
	return true, nil
}
