package authapi

import (
	"github.com/ameynaysathe/chai-backend/cmd/identity"
	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
)

func toUserResponse(u identity.PublicUser) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}

func toSessionResponse(t session.Tokens) sessionResponse {
	return sessionResponse{
		AccessToken:      t.Access.Value,
		AccessExpiresAt:  t.Access.ExpiresAt,
		RefreshToken:     t.Refresh.Value,
		RefreshExpiresAt: t.Refresh.ExpiresAt,
	}
}
