// Package admin guards routes with a shared secret header.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"zac/pkg/requestcontext"
)

// HeaderAdminToken carries the administrator token.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken rejects requests without the administrator token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireToken(HeaderAdminToken, expectedToken, logger)
}

// RequireToken rejects requests whose header does not carry expectedToken.
// An empty expectedToken rejects everything.
func RequireToken(header, expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(header)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "shared token mismatch",
					"header", header,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
