package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
)

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, identifier, reason string) {
	h.audit(ctx, "auth.login.failed", ip, ua, "identifier", identifier, "reason", reason)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.login.success", ip, ua, "user_id", userID)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua, identifier string, retryAfter time.Duration) {
	h.audit(ctx, "auth.login.rate_limited", ip, ua,
		"identifier", identifier,
		"retry_after_s", int64(retryAfter.Seconds()),
	)
}

func (h *Handler) auditRefreshReuse(ctx context.Context, ip net.IP, ua string) {
	h.audit(ctx, "auth.refresh.reuse_detected", ip, ua)
}

func (h *Handler) auditLogout(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.logout", ip, ua, "user_id", userID)
}

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, "auth.register", ip, ua, "user_id", userID)
}

// audit writes one security event. Events go to the structured log under
// the "audit" group so they can be routed separately.
func (h *Handler) audit(ctx context.Context, action string, ip net.IP, ua string, attrs ...any) {
	if h == nil || h.log == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal string
	if ip != nil {
		ipVal = ip.String()
	}
	base := []any{"action", action, "ip", ipVal, "user_agent", strings.TrimSpace(ua)}
	h.log.LogAttrs(ctx, slog.LevelInfo, "auth.audit", slog.Group("audit", append(base, attrs...)...))
}
