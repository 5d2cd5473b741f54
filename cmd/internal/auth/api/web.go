package authapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, t session.Tokens) {
	h.setCookie(w, h.cfg.AccessCookieName, t.Access.Value, t.Access.ExpiresAt)
	h.setCookie(w, h.cfg.RefreshCookieName, t.Refresh.Value, t.Refresh.ExpiresAt)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	if h == nil || w == nil {
		return
	}
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
}

func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	return h.cookieValue(r, h.cfg.RefreshCookieName)
}

func (h *Handler) accessTokenFromCookie(r *http.Request) (string, bool) {
	return h.cookieValue(r, h.cfg.AccessCookieName)
}

func (h *Handler) cookieValue(r *http.Request, name string) (string, bool) {
	if h == nil || r == nil || name == "" {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	if h == nil || w == nil {
		return
	}
	o := h.cfg.Cookies
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Expires:  exp,
		HttpOnly: o.HTTPOnly,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if h == nil || w == nil || strings.TrimSpace(name) == "" {
		return
	}
	o := h.cfg.Cookies
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: o.HTTPOnly,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
