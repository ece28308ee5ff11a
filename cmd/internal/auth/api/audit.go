package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// audit emits one structured security event. Events carry ids and request
// metadata only, never credentials or token text.
func (h *Handler) audit(ctx context.Context, r *http.Request, action, userID string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("action", action),
	}
	if userID != "" {
		base = append(base, slog.String("user_id", userID))
	}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		base = append(base, slog.String("ip", ip.String()))
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		base = append(base, slog.String("user_agent", ua))
	}
	base = append(base, attrs...)

	h.log.LogAttrs(ctx, slog.LevelInfo, "audit", base...)
}
