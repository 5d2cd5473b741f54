package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ameynaysathe/chai-backend/cmd/identity"
	"github.com/ameynaysathe/chai-backend/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to the session manager.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Manager
	throttle *loginThrottle
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the clock used for login throttling.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, sessions *session.Manager, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session manager")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		throttle: newLoginThrottle(cfg),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes returns the user auth routes, to be mounted under /api/v1/users.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh-token", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	return r
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.sessions.Register(ctx, session.RegisterInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeSessionError(w, "auth.register", err)
		return
	}

	h.auditRegister(ctx, u.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	writeJSON(w, http.StatusCreated, userEnvelope{User: toUserResponse(u)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	identifier, ok := loginIdentifier(req)
	if !ok || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username or email and password are required")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	if blocked, retryAfter := h.throttle.check(ip, identifier, now); blocked {
		h.auditLoginRateLimited(ctx, ip, ua, identifier, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	res, err := h.sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			h.throttle.recordFailure(ip, identifier, now)
			h.auditLoginFailed(ctx, ip, ua, identifier, "not_found")
		case errors.Is(err, session.ErrInvalidCredentials):
			h.throttle.recordFailure(ip, identifier, now)
			h.auditLoginFailed(ctx, ip, ua, identifier, "bad_password")
		}
		h.writeSessionError(w, "auth.login", err)
		return
	}

	h.throttle.reset(identifier)
	h.auditLoginSuccess(ctx, res.User.ID, ip, ua)

	h.setSessionCookies(w, res.Tokens)
	writeJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(res.User),
		Session: toSessionResponse(res.Tokens),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	// The cookie takes precedence over the body.
	presented := strings.TrimSpace(req.RefreshToken)
	if c, ok := h.refreshTokenFromCookie(r); ok {
		presented = c
	}

	ctx := r.Context()
	tokens, err := h.sessions.Refresh(ctx, presented)
	if err != nil {
		if errors.Is(err, session.ErrTokenReused) {
			h.auditRefreshReuse(ctx, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
		}
		if status, _, _ := errorStatus(err); status == http.StatusUnauthorized {
			h.clearSessionCookies(w)
		}
		h.writeSessionError(w, "auth.refresh", err)
		return
	}

	h.setSessionCookies(w, tokens)
	writeJSON(w, http.StatusOK, refreshResponse{Session: toSessionResponse(tokens)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.sessions.Logout(ctx, claims.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		h.writeSessionError(w, "auth.logout", err)
		return
	}

	h.auditLogout(ctx, claims.UserID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.clearSessionCookies(w)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	u, err := h.sessions.Current(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}
		h.writeSessionError(w, "auth.me", err)
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(u)})
}

// requireAuth accepts a bearer token or the access cookie.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.Claims, bool) {
	token := bearerToken(r)
	if token == "" {
		token, _ = h.accessTokenFromCookie(r)
	}
	claims, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		h.writeSessionError(w, "auth.authenticate", err)
		return session.Claims{}, false
	}
	return claims, true
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// loginIdentifier picks identifier, then username, then email.
func loginIdentifier(req loginRequest) (string, bool) {
	for _, v := range []string{trimPtr(req.Identifier), trimPtr(req.Username), trimPtr(req.Email)} {
		if v != "" {
			return identity.NormalizeIdentifier(v), true
		}
	}
	return "", false
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
