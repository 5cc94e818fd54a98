package testutil

import (
	"net/http"
	"time"

	"zac/pkg/requestcontext"
)

// WithActor adds the acting user to the request context, as the metadata
// middleware does for requests carrying an X-Actor header.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
