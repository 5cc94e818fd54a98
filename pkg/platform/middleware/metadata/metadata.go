package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"zac/pkg/requestcontext"
)

const (
	// HeaderRequestID carries the correlation id; generated when absent.
	HeaderRequestID = "X-Request-ID"
	// HeaderActor carries the acting employee as resolved by the gateway.
	HeaderActor = "X-Actor"
	// HeaderActorGroups lists the acting employee's groups, comma separated.
	HeaderActorGroups = "X-Actor-Groups"
)

// RequestMetadata copies the correlation id and acting employee from the
// request headers into the context and echoes the request id on the response.
// This middleware should be applied early in the chain.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		if actor := strings.TrimSpace(r.Header.Get(HeaderActor)); actor != "" {
			ctx = requestcontext.WithActor(ctx, actor)
			if groups := splitGroups(r.Header.Get(HeaderActorGroups)); len(groups) > 0 {
				ctx = requestcontext.WithGroups(ctx, groups)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
