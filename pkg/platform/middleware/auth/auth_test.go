package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"zac/pkg/requestcontext"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &JWTClaims{Subject: "medewerker-7", Groups: []string{"team-bezwaar"}, JTI: "jti-1"}, nil
}

func TestRequireAuth(t *testing.T) {
	var actor string
	var groups []string
	handler := RequireAuth(stubValidator{}, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = requestcontext.Actor(r.Context())
			groups = requestcontext.Groups(r.Context())
		}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, groups = "", nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "medewerker-7", actor)
				assert.Equal(t, []string{"team-bezwaar"}, groups)
			} else {
				assert.Empty(t, actor)
				assert.JSONEq(t, `{"error":"unauthorized","error_description":"`+descriptionFor(tt.header)+`"}`, rec.Body.String())
			}
		})
	}
}

func descriptionFor(header string) string {
	if header == "Bearer bad" {
		return "Invalid or expired token"
	}
	return "Missing or invalid Authorization header"
}
