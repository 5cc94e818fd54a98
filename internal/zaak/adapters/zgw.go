// Package adapters implements the zaak collaborators against the ZGW task and
// decision APIs, with local fallbacks when those are not configured.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	catalogclient "zac/internal/catalog/client"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/circuit"
	"zac/pkg/platform/sentinel"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultProbeInterval = 5 * time.Second
)

// apiClient is a JSON client for one ZGW API behind a circuit breaker.
type apiClient struct {
	name    string
	baseURL *url.URL
	http    *http.Client
	session *catalogclient.TokenSession
	breaker *circuit.Breaker
	logger  *slog.Logger

	probeMu   sync.Mutex
	lastProbe time.Time
}

type Option func(*apiClient)

func WithHTTPClient(c *http.Client) Option {
	return func(a *apiClient) {
		a.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *apiClient) {
		a.logger = logger
	}
}

func newAPIClient(name, baseURL string, session *catalogclient.TokenSession, opts ...Option) (*apiClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s base URL %q", name, baseURL)
	}
	if session == nil {
		return nil, errors.New("token session is required")
	}
	a := &apiClient{
		name:    name,
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
		breaker: circuit.New(name),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *apiClient) endpoint(query url.Values, parts ...string) string {
	u := *a.baseURL
	u.Path = path.Join(append([]string{u.Path}, parts...)...)
	u.RawQuery = query.Encode()
	return u.String()
}

func (a *apiClient) do(ctx context.Context, method, target string, body, out any) error {
	if !a.allowRequest() {
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInternal, a.name+" circuit open")
	}
	token, err := a.session.Token()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign "+a.name+" token")
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode "+a.name+" request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build "+a.name+" request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		a.recordFailure(ctx)
		return dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeInternal, a.name+" request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		a.recordSuccess(ctx)
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, a.name+" resource not found")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.session.Invalidate()
		return dErrors.New(dErrors.CodeInternal, a.name+" rejected credentials: "+strconv.Itoa(resp.StatusCode))
	case resp.StatusCode >= 500:
		a.recordFailure(ctx)
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInternal, a.name+" returned "+strconv.Itoa(resp.StatusCode))
	case resp.StatusCode >= 300:
		return dErrors.New(dErrors.CodeInternal, "unexpected "+a.name+" status "+strconv.Itoa(resp.StatusCode))
	}
	a.recordSuccess(ctx)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode "+a.name+" response")
	}
	return nil
}

// allowRequest lets one probe through per interval while the circuit is open.
func (a *apiClient) allowRequest() bool {
	if !a.breaker.IsOpen() {
		return true
	}
	a.probeMu.Lock()
	defer a.probeMu.Unlock()
	now := time.Now()
	if now.Sub(a.lastProbe) < defaultProbeInterval {
		return false
	}
	a.lastProbe = now
	return true
}

func (a *apiClient) recordFailure(ctx context.Context) {
	if _, change := a.breaker.RecordFailure(); change.Opened {
		a.logger.WarnContext(ctx, "circuit opened", "breaker", a.breaker.Name())
	}
}

func (a *apiClient) recordSuccess(ctx context.Context) {
	if _, change := a.breaker.RecordSuccess(); change.Closed {
		a.logger.InfoContext(ctx, "circuit closed", "breaker", a.breaker.Name())
	}
}
