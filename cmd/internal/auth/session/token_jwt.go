package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSigner signs one token kind with JWT HS256.
type jwtSigner struct {
	issuer    string
	kind      Kind
	clockSkew time.Duration
	secret    []byte
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Type Kind `json:"typ"`
}

func newJWTSigner(issuer string, kind Kind, secret []byte, clockSkew time.Duration) (*jwtSigner, error) {
	if len(secret) < MinJWTSecretBytes {
		return nil, ErrConfig
	}
	return &jwtSigner{
		issuer:    issuer,
		kind:      kind,
		clockSkew: clockSkew,
		secret:    append([]byte(nil), secret...),
	}, nil
}

func (s *jwtSigner) Sign(c Claims) (string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   c.UserID,
			ID:        c.ID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			NotBefore: jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Type: c.Kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *jwtSigner) Verify(token string, now time.Time) (Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, classifyJWTError(err)
	}

	// Issuer and type are checked after the signature so that a forged
	// token is always reported as a signature failure.
	if claims.Issuer != s.issuer || claims.Type != s.kind {
		return Claims{}, ErrInvalidSignature
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return Claims{}, ErrMalformed
	}

	return Claims{
		UserID:    claims.Subject,
		Kind:      claims.Type,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrExpired
	default:
		return ErrInvalidSignature
	}
}
