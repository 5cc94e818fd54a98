package observability

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptestutil "zac/pkg/testutil"
)

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(Recovery(logger), Logger(logger), Latency(m))
	r.Get("/zaken/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rr := ptestutil.DoRequest(r, ptestutil.NewJSONRequest(t, http.MethodGet, "/zaken/abc", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))

	count, err := testutil.GatherAndCount(reg, "zac_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rr = ptestutil.DoRequest(r, ptestutil.NewJSONRequest(t, http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, rr.Body.String())
	assert.Contains(t, buf.String(), "panic serving request")
}

func TestLatencyWithoutMetrics(t *testing.T) {
	called := false
	h := Latency(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(nil, nil)
	assert.True(t, called)
}
