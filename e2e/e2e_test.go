package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the feature files against the server at ZAC_BASE_URL.
// The server must run with CATALOG_FILE=e2e/testdata/catalog.yaml and
// without AUTH_JWT_SIGNING_KEY so the actor headers are trusted.
func TestFeatures(t *testing.T) {
	if os.Getenv("ZAC_BASE_URL") == "" {
		t.Skip("ZAC_BASE_URL is not set")
	}
	tc := NewTestContext()

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature tests failed")
	}
}
