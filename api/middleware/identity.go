package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/internal/audit"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/logger"
)

const (
	userIDHeader       = "X-User-Id"
	forwardedForHeader = "X-Forwarded-For"
)

// Identity resolves the acting user from the X-User-Id header set by the
// gateway. Mutating routes refuse requests without one so the audit trail
// always carries an actor.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if userID == "" && r.Method != http.MethodGet {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = audit.WithClientIP(ctx, clientIP(r))
			if logg != nil && userID != "" {
				ctx = logg.WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP prefers the gateway-forwarded address, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(forwardedForHeader); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
