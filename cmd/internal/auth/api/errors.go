package authapi

import (
	"errors"
	"net/http"

	"github.com/ameynaysathe/chai-backend/cmd/identity"
	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
)

// errorStatus maps a session or identity error to a status, a stable code
// and a client-safe message. Unknown and credential lookups collapse into
// one answer so callers cannot enumerate accounts.
func errorStatus(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case errors.Is(err, session.ErrMissingToken):
		return http.StatusUnauthorized, "missing_token", "token is required"
	case errors.Is(err, session.ErrTokenReused):
		return http.StatusUnauthorized, "token_reused", "refresh token is no longer valid"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "invalid or expired token"
	case identity.IsConflict(err):
		return http.StatusConflict, "conflict", conflictMessage(err)
	case errors.Is(err, identity.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", invalidInputMessage(err)
	default:
		return http.StatusInternalServerError, "server_error", "internal error"
	}
}

func conflictMessage(err error) string {
	var ce identity.ConflictError
	if errors.As(err, &ce) && ce.Field != "" {
		return ce.Field + " already exists"
	}
	return "user already exists"
}

func invalidInputMessage(err error) string {
	var oe identity.OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	return "invalid request"
}

func (h *Handler) writeSessionError(w http.ResponseWriter, event string, err error) {
	status, code, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(event+".fail", "err", err)
	}
	writeError(w, status, code, msg)
}
