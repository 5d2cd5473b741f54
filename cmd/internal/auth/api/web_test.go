package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
)

func testCookieHandler() *Handler {
	return &Handler{cfg: Config{
		AccessCookieName:  "accessToken",
		RefreshCookieName: "refreshToken",
		Cookies: CookieOptions{
			HTTPOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
			Path:     "/",
			Domain:   "example.com",
		},
	}}
}

func TestSetSessionCookies(t *testing.T) {
	h := testCookieHandler()

	rr := httptest.NewRecorder()
	exp := time.Now().UTC().Add(30 * time.Minute)
	h.setSessionCookies(rr, session.Tokens{
		Access:  session.Token{Value: "access-123", ExpiresAt: exp},
		Refresh: session.Token{Value: "refresh-123", ExpiresAt: exp.Add(time.Hour)},
	})

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie %q missing flags: %+v", c.Name, c)
		}
		if c.Domain != "example.com" || c.Path != "/" {
			t.Fatalf("cookie %q has wrong scope: %+v", c.Name, c)
		}
	}
	if cookies[0].Name != "accessToken" || cookies[0].Value != "access-123" {
		t.Fatalf("unexpected access cookie: %+v", cookies[0])
	}
	if cookies[1].Name != "refreshToken" || cookies[1].Value != "refresh-123" {
		t.Fatalf("unexpected refresh cookie: %+v", cookies[1])
	}
}

func TestClearSessionCookies(t *testing.T) {
	h := testCookieHandler()

	rr := httptest.NewRecorder()
	h.clearSessionCookies(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %q not expired: %+v", c.Name, c)
		}
	}
}

func TestRefreshTokenFromCookie(t *testing.T) {
	h := testCookieHandler()

	req := httptest.NewRequest(http.MethodPost, "/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "tok-123"})

	token, ok := h.refreshTokenFromCookie(req)
	if !ok {
		t.Fatalf("expected cookie token to be found")
	}
	if token != "tok-123" {
		t.Fatalf("unexpected cookie token: %q", token)
	}

	if _, ok := h.accessTokenFromCookie(req); ok {
		t.Fatalf("access cookie must not be found")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer   abc  ":   "abc",
		"Basic dXNlcjpwdw": "",
		"Bearer":           "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := bearerToken(req); got != want {
			t.Fatalf("bearerToken(%q)=%q, want %q", header, got, want)
		}
	}
}
