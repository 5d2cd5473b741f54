package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// maxTokenLen bounds the size of a presented token before any parsing.
const maxTokenLen = 8192

// Token is a signed credential together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims is the verified content of a token.
type Claims struct {
	UserID    string
	Kind      Kind
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer signs and verifies one token kind with one key.
//
// Verify must return exactly one of ErrMalformed, ErrInvalidSignature or
// ErrExpired on failure, and must not trust any claim before the signature
// has been checked.
type Signer interface {
	Sign(c Claims) (string, error)
	Verify(token string, now time.Time) (Claims, error)
}

// Issuer mints and verifies access and refresh tokens.
// It holds immutable keys only and is safe for concurrent use.
type Issuer struct {
	now func() time.Time

	access     Signer
	accessTTL  time.Duration
	refresh    Signer
	refreshTTL time.Duration
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithClock overrides the issuer's clock.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer builds an Issuer from a validated Config.
func NewIssuer(cfg Config, opts ...IssuerOption) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	access, err := newSigner(cfg, KindAccess, cfg.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := newSigner(cfg, KindRefresh, cfg.Refresh)
	if err != nil {
		return nil, err
	}

	i := &Issuer{
		now:        time.Now,
		access:     access,
		accessTTL:  cfg.Access.TTL,
		refresh:    refresh,
		refreshTTL: cfg.Refresh.TTL,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func newSigner(cfg Config, kind Kind, k KeyConfig) (Signer, error) {
	switch k.Format {
	case FormatPASETO:
		return newPasetoSigner(cfg.Issuer, kind, k.PasetoKeyHex, cfg.ClockSkew)
	case FormatJWT:
		return newJWTSigner(cfg.Issuer, kind, []byte(k.Secret), cfg.ClockSkew)
	default:
		return nil, ErrConfig
	}
}

// IssueAccess mints a short-lived access token for userID.
func (i *Issuer) IssueAccess(userID string) (Token, error) {
	return i.issue(i.access, KindAccess, i.accessTTL, userID)
}

// IssueRefresh mints a long-lived refresh token for userID.
func (i *Issuer) IssueRefresh(userID string) (Token, error) {
	return i.issue(i.refresh, KindRefresh, i.refreshTTL, userID)
}

func (i *Issuer) issue(s Signer, kind Kind, ttl time.Duration, userID string) (Token, error) {
	if strings.TrimSpace(userID) == "" {
		return Token{}, errors.New("session: empty user id")
	}

	// Second precision: both formats encode times at that resolution.
	now := i.now().UTC().Truncate(time.Second)
	c := Claims{
		UserID:    userID,
		Kind:      kind,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	v, err := s.Sign(c)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: v, ExpiresAt: c.ExpiresAt}, nil
}

// Verify checks token as a token of the given kind.
// It fails with ErrMalformed, ErrInvalidSignature or ErrExpired.
func (i *Issuer) Verify(token string, kind Kind) (Claims, error) {
	if token == "" || len(token) > maxTokenLen {
		return Claims{}, ErrMalformed
	}

	var s Signer
	switch kind {
	case KindAccess:
		s = i.access
	case KindRefresh:
		s = i.refresh
	default:
		return Claims{}, ErrInvalidSignature
	}

	c, err := s.Verify(token, i.now())
	if err != nil {
		return Claims{}, err
	}
	if c.Kind != kind {
		return Claims{}, ErrInvalidSignature
	}
	return c, nil
}
