package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/identity"
	"github.com/ameynaysathe/chai-backend/cmd/security/token"
)

// CredentialVerifier compares a presented secret with a stored hash.
// password.Verifier satisfies it.
type CredentialVerifier interface {
	Matches(secret, storedHash string) bool
}

// PasswordHasher encodes new secrets at registration.
// password.Config satisfies it.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Validate(secret string) error
}

// uncheckedHasher hashes a secret without the registration policy.
// password.Config satisfies it.
type uncheckedHasher interface {
	HashUnchecked(secret string) (string, error)
}

// rehashChecker is implemented by verifiers that can flag legacy hashes.
type rehashChecker interface {
	NeedsRehash(storedHash string) bool
}

// Observer receives one event per Manager operation.
type Observer interface {
	Observe(op, outcome string)
}

type nopObserver struct{}

func (nopObserver) Observe(string, string) {}

// Tokens is a freshly minted access/refresh pair.
type Tokens struct {
	Access  Token
	Refresh Token
}

// LoginResult is returned by Login.
type LoginResult struct {
	Tokens
	User identity.PublicUser
}

// RegisterInput describes a new account.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Manager implements login, refresh rotation and logout.
//
// A user has at most one live refresh token. Its fingerprint is stored on the
// user record and replaced with a compare-and-swap on every refresh, so a
// refresh token is usable once.
type Manager struct {
	store    identity.Store
	issuer   *Issuer
	verifier CredentialVerifier
	hasher   PasswordHasher
	prints   token.Hasher
	obs      Observer
	log      *slog.Logger
	now      func() time.Time

	// dummyHash is verified on unknown identifiers so the not-found path
	// costs about as much as a wrong password.
	dummyHash string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithObserver reports operation outcomes, e.g. to Metrics.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.obs = o
		}
	}
}

// WithFingerprinter sets how refresh tokens are fingerprinted before storage.
// Defaults to plain SHA-256.
func WithFingerprinter(h token.Hasher) ManagerOption {
	return func(m *Manager) { m.prints = h }
}

// WithPasswordHasher enables Register.
func WithPasswordHasher(h PasswordHasher) ManagerOption {
	return func(m *Manager) { m.hasher = h }
}

// NewManager wires a Manager.
func NewManager(store identity.Store, issuer *Issuer, verifier CredentialVerifier, opts ...ManagerOption) (*Manager, error) {
	if store == nil || issuer == nil || verifier == nil {
		return nil, ErrConfig
	}

	m := &Manager{
		store:    store,
		issuer:   issuer,
		verifier: verifier,
		prints:   token.NewHasher(nil),
		obs:      nopObserver{},
		log:      slog.Default(),
		now:      issuer.now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.hasher != nil {
		h, err := newDummyHash(m.hasher)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		m.dummyHash = h
	}
	return m, nil
}

// newDummyHash produces the hash compared against when a login names no account.
// The policy is skipped so that no legal policy can break startup.
func newDummyHash(h PasswordHasher) (string, error) {
	if u, ok := h.(uncheckedHasher); ok {
		return u.HashUnchecked("chai-dummy-secret")
	}
	return h.Hash("chai-dummy-secret")
}

// Login verifies identifier (username or email) and secret, then starts a
// new session, replacing any refresh token the user held before.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (res LoginResult, err error) {
	defer func() { m.obs.Observe("login", Outcome(err)) }()

	u, err := m.store.FindByAlternateKey(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			if m.dummyHash != "" {
				_ = m.verifier.Matches(secret, m.dummyHash)
			}
			return LoginResult{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		m.log.Error("auth.login.lookup.fail", "err", err)
		return LoginResult{}, fmt.Errorf("%w: %w", ErrUserStore, err)
	}

	if !m.verifier.Matches(secret, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if rc, ok := m.verifier.(rehashChecker); ok && rc.NeedsRehash(u.PasswordHash) {
		m.log.Info("auth.login.rehash_needed", "user_id", u.ID)
	}

	tokens, err := m.mint(u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	if err := m.store.SetRefreshToken(ctx, u.ID, m.prints.Fingerprint(tokens.Refresh.Value)); err != nil {
		m.log.Error("auth.session.persist.fail", "op", "login", "user_id", u.ID, "err", err)
		return LoginResult{}, fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}

	m.log.Info("auth.login.ok", "user_id", u.ID)
	return LoginResult{Tokens: tokens, User: u.Public()}, nil
}

// Refresh rotates presented into a new access/refresh pair.
//
// presented must verify as a refresh token and must be the user's current
// one; any other token fails with ErrTokenReused. When two calls race with
// the same token exactly one wins. The legitimate session is not revoked on
// reuse, the failing caller just has to log in again.
func (m *Manager) Refresh(ctx context.Context, presented string) (tokens Tokens, err error) {
	defer func() { m.obs.Observe("refresh", Outcome(err)) }()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Tokens{}, ErrMissingToken
	}
	if len(presented) > maxTokenLen {
		return Tokens{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMalformed)
	}

	claims, err := m.issuer.Verify(presented, KindRefresh)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	u, err := m.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return Tokens{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		m.log.Error("auth.refresh.lookup.fail", "err", err)
		return Tokens{}, fmt.Errorf("%w: %w", ErrUserStore, err)
	}

	current := m.prints.Fingerprint(presented)
	if !m.prints.Matches(presented, u.RefreshTokenHash) {
		m.log.Warn("auth.refresh.reused", "user_id", u.ID, "jti", claims.ID)
		return Tokens{}, ErrTokenReused
	}

	tokens, err = m.mint(u.ID)
	if err != nil {
		return Tokens{}, err
	}

	swapped, err := m.store.SwapRefreshToken(ctx, u.ID, current, m.prints.Fingerprint(tokens.Refresh.Value))
	if err != nil {
		m.log.Error("auth.session.persist.fail", "op", "refresh", "user_id", u.ID, "err", err)
		return Tokens{}, fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}
	if !swapped {
		// Lost the race against a concurrent refresh, login or logout.
		m.log.Warn("auth.refresh.reused", "user_id", u.ID, "jti", claims.ID, "race", true)
		return Tokens{}, ErrTokenReused
	}

	return tokens, nil
}

// Logout clears the user's refresh token. Calling it again is not an error.
func (m *Manager) Logout(ctx context.Context, userID string) (err error) {
	defer func() { m.obs.Observe("logout", Outcome(err)) }()

	if err := m.store.SetRefreshToken(ctx, userID, ""); err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		m.log.Error("auth.session.persist.fail", "op", "logout", "user_id", userID, "err", err)
		return fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}

	m.log.Info("auth.logout.ok", "user_id", userID)
	return nil
}

// Authenticate verifies an access token.
func (m *Manager) Authenticate(_ context.Context, access string) (Claims, error) {
	access = strings.TrimSpace(access)
	if access == "" {
		return Claims{}, ErrMissingToken
	}
	c, err := m.issuer.Verify(access, KindAccess)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return c, nil
}

// Register creates an account. It does not start a session.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (identity.PublicUser, error) {
	const op = "session.Register"

	if m.hasher == nil {
		return identity.PublicUser{}, ErrConfig
	}
	for _, f := range []string{in.FullName, in.Username, in.Email, in.Password} {
		if strings.TrimSpace(f) == "" {
			return identity.PublicUser{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "all fields are required"}
		}
	}
	if err := m.hasher.Validate(in.Password); err != nil {
		return identity.PublicUser{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: err.Error()}
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return identity.PublicUser{}, err
	}

	u, err := m.store.CreateUser(ctx, identity.CreateUserInput{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Now:          m.now(),
	})
	if err != nil {
		return identity.PublicUser{}, err
	}

	m.log.Info("auth.register.ok", "user_id", u.ID)
	return u.Public(), nil
}

// Current returns the public view of userID.
func (m *Manager) Current(ctx context.Context, userID string) (identity.PublicUser, error) {
	u, err := m.store.FindByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return identity.PublicUser{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return identity.PublicUser{}, fmt.Errorf("%w: %w", ErrUserStore, err)
	}
	return u.Public(), nil
}

func (m *Manager) mint(userID string) (Tokens, error) {
	access, err := m.issuer.IssueAccess(userID)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := m.issuer.IssueRefresh(userID)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}
