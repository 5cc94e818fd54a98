// Package e2e drives a running zac server through its HTTP API with godog
// feature files.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the state one scenario builds up.
type TestContext struct {
	BaseURL      string
	AdminToken   string
	WebhookToken string
	Actor        string
	Groups       []string

	client     *http.Client
	lastStatus int
	lastBody   []byte
	cases      map[string]string
}

// NewTestContext reads the target server from the environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:      strings.TrimRight(getenv("ZAC_BASE_URL", "http://localhost:8080"), "/"),
		AdminToken:   os.Getenv("ZAC_ADMIN_TOKEN"),
		WebhookToken: os.Getenv("ZAC_WEBHOOK_TOKEN"),
		client:       &http.Client{Timeout: 10 * time.Second},
		cases:        map[string]string{},
	}
}

// Reset clears scenario state.
func (tc *TestContext) Reset() {
	tc.Actor = ""
	tc.Groups = nil
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.cases = map[string]string{}
}

func (tc *TestContext) Do(ctx context.Context, method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.Actor != "" {
		req.Header.Set("X-Actor", tc.Actor)
		req.Header.Set("X-Actor-Groups", strings.Join(tc.Groups, ","))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) POST(ctx context.Context, path string, body any) error {
	return tc.Do(ctx, http.MethodPost, path, body, nil)
}

func (tc *TestContext) GET(ctx context.Context, path string) error {
	return tc.Do(ctx, http.MethodGet, path, nil, nil)
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() string { return string(tc.lastBody) }

// ResponseField returns a dotted path ("case.status") from the last JSON body.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %s", tc.lastBody)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", path, part)
		}
		if doc, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q missing in %s", path, tc.lastBody)
		}
	}
	return doc, nil
}

func (tc *TestContext) RememberCase(alias, caseID string) { tc.cases[alias] = caseID }

func (tc *TestContext) CaseID(alias string) (string, error) {
	caseID, ok := tc.cases[alias]
	if !ok {
		return "", fmt.Errorf("no case called %q was opened in this scenario", alias)
	}
	return caseID, nil
}

func (tc *TestContext) SetActor(actor string, groups []string) {
	tc.Actor = actor
	tc.Groups = groups
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (tc *TestContext) AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Token": tc.AdminToken}
}

func (tc *TestContext) WebhookHeaders() map[string]string {
	return map[string]string{"X-Catalog-Token": tc.WebhookToken}
}
