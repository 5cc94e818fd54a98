// Package client reads case types from a ZGW Catalogi API.
package client

import (
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

	"github.com/google/uuid"

	"zac/internal/catalog/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/circuit"
	"zac/pkg/platform/sentinel"
)

const defaultTimeout = 10 * time.Second

// defaultProbeInterval spaces the requests let through while the circuit is open.
const defaultProbeInterval = 5 * time.Second

// maxPages bounds pagination when listing case types.
const maxPages = 100

// Client reads case types and result types from the catalog.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	session       *TokenSession
	breaker       *circuit.Breaker
	probeInterval time.Duration
	logger        *slog.Logger
	now           func() time.Time

	probeMu   sync.Mutex
	lastProbe time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// New constructs a catalog client for baseURL, authenticating with session.
func New(baseURL string, session *TokenSession, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog base URL %q", baseURL)
	}
	if session == nil {
		return nil, errors.New("token session is required")
	}
	c := &Client{
		baseURL:       u,
		http:          &http.Client{Timeout: defaultTimeout},
		session:       session,
		breaker:       circuit.New("catalog"),
		probeInterval: defaultProbeInterval,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type zaaktype struct {
	URL                string `json:"url"`
	Omschrijving       string `json:"omschrijving"`
	Concept            bool   `json:"concept"`
	VerlengingMogelijk bool   `json:"verlengingMogelijk"`
	Verlengingstermijn string `json:"verlengingstermijn"`
}

type resultaattype struct {
	URL          string `json:"url"`
	Omschrijving string `json:"omschrijving"`
}

type page[T any] struct {
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// ReadCaseType reads one case-type version with its result types.
func (c *Client) ReadCaseType(ctx context.Context, versionID id.CaseTypeVersionID) (models.CaseType, error) {
	var zt zaaktype
	if err := c.getJSON(ctx, c.endpoint("zaaktypen", versionID.String()), &zt); err != nil {
		return models.CaseType{}, err
	}
	return c.toCaseType(ctx, versionID, zt)
}

// ListPublished lists every non-concept case-type version.
func (c *Client) ListPublished(ctx context.Context) ([]models.CaseType, error) {
	next := c.endpoint("zaaktypen") + "?status=definitief"
	var out []models.CaseType
	for i := 0; next != "" && i < maxPages; i++ {
		var p page[zaaktype]
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, err
		}
		for _, zt := range p.Results {
			versionID, err := idFromURL(zt.URL)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping case type with unusable url", "url", zt.URL, "error", err)
				continue
			}
			ct, err := c.toCaseType(ctx, id.CaseTypeVersionID(versionID), zt)
			if err != nil {
				return nil, err
			}
			out = append(out, ct)
		}
		next = p.Next
	}
	return out, nil
}

func (c *Client) toCaseType(ctx context.Context, versionID id.CaseTypeVersionID, zt zaaktype) (models.CaseType, error) {
	resultTypes, err := c.listResultTypes(ctx, zt.URL)
	if err != nil {
		return models.CaseType{}, err
	}
	return models.CaseType{
		VersionID:         versionID,
		Description:       zt.Omschrijving,
		IsConcept:         zt.Concept,
		ResultTypes:       resultTypes,
		ExtensionAllowed:  zt.VerlengingMogelijk,
		ExtensionTermDays: parseTermDays(zt.Verlengingstermijn),
	}, nil
}

func (c *Client) listResultTypes(ctx context.Context, zaaktypeURL string) ([]models.ResultType, error) {
	next := c.endpoint("resultaattypen") + "?zaaktype=" + url.QueryEscape(zaaktypeURL)
	var out []models.ResultType
	for i := 0; next != "" && i < maxPages; i++ {
		var p page[resultaattype]
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, err
		}
		for _, rt := range p.Results {
			ref, err := idFromURL(rt.URL)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping result type with unusable url", "url", rt.URL, "error", err)
				continue
			}
			out = append(out, models.ResultType{Ref: id.ResultTypeRef(ref), Description: rt.Omschrijving})
		}
		next = p.Next
	}
	return out, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{u.Path}, parts...)...)
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	if !c.allowRequest() {
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInternal, "catalog circuit open")
	}

	token, err := c.session.Token()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign catalog token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build catalog request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Crs", "EPSG:4326")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeInternal, "catalog request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.recordSuccess(ctx)
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "case type not found in catalog")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.session.Invalidate()
		return dErrors.New(dErrors.CodeInternal, "catalog rejected credentials: "+strconv.Itoa(resp.StatusCode))
	case resp.StatusCode >= 500:
		c.recordFailure(ctx)
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInternal, "catalog returned "+strconv.Itoa(resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return dErrors.New(dErrors.CodeInternal, "unexpected catalog status "+strconv.Itoa(resp.StatusCode))
	}
	c.recordSuccess(ctx)

	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode catalog response")
	}
	return nil
}

// Healthy reports whether the catalog circuit is closed.
func (c *Client) Healthy() bool {
	return !c.breaker.IsOpen()
}

// allowRequest passes every request while the circuit is closed and one probe
// per interval while it is open.
func (c *Client) allowRequest() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	now := c.now()
	if now.Sub(c.lastProbe) < c.probeInterval {
		return false
	}
	c.lastProbe = now
	return true
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "catalog circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "catalog circuit closed", "breaker", c.breaker.Name())
	}
}

func idFromURL(raw string) (uuid.UUID, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(path.Base(u.Path))
}

// parseTermDays reads an ISO-8601 day or week period such as "P30D" or "P6W".
func parseTermDays(period string) int {
	p := strings.ToUpper(strings.TrimSpace(period))
	if !strings.HasPrefix(p, "P") || len(p) < 3 {
		return 0
	}
	unit := p[len(p)-1]
	n, err := strconv.Atoi(p[1 : len(p)-1])
	if err != nil || n < 0 {
		return 0
	}
	switch unit {
	case 'D':
		return n
	case 'W':
		return n * 7
	default:
		return 0
	}
}
