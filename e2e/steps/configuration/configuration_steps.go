package configuration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) error
	LastStatus() int
	LastBody() string
	ResponseField(path string) (any, error)
}

// Tokens supplies the shared secrets of the administrator and webhook routes.
type Tokens interface {
	TestContext
	AdminHeaders() map[string]string
	WebhookHeaders() map[string]string
}

// RegisterSteps registers catalog notification and configuration steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc Tokens) {
	steps := &configurationSteps{tc: tc}

	ctx.Step(`^the catalog publishes case type version "([^"]*)" described "([^"]*)" with result types:$`, steps.publish)
	ctx.Step(`^the catalog publishes concept case type version "([^"]*)" described "([^"]*)"$`, steps.publishConcept)
	ctx.Step(`^the configuration of case type version "([^"]*)" maps ending reason (\d+) to result type "([^"]*)"$`, steps.mapEndingReason)
	ctx.Step(`^I fetch the configuration of case type version "([^"]*)"$`, steps.fetch)
	ctx.Step(`^ending reason (\d+) should map to result type "([^"]*)"$`, steps.endingReasonShouldMapTo)
}

type configurationSteps struct {
	tc Tokens
}

func (s *configurationSteps) publish(ctx context.Context, versionID, description string, table *godog.Table) error {
	var resultTypes []map[string]string
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		resultTypes = append(resultTypes, map[string]string{
			"ref":         row.Cells[0].Value,
			"description": row.Cells[1].Value,
		})
	}
	return s.notify(ctx, map[string]any{
		"version_id":   versionID,
		"description":  description,
		"is_concept":   false,
		"result_types": resultTypes,
	})
}

func (s *configurationSteps) publishConcept(ctx context.Context, versionID, description string) error {
	return s.notify(ctx, map[string]any{
		"version_id":  versionID,
		"description": description,
		"is_concept":  true,
	})
}

func (s *configurationSteps) notify(ctx context.Context, body any) error {
	if err := s.tc.Do(ctx, http.MethodPost, "/catalog/notifications", body, s.tc.WebhookHeaders()); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("notification rejected with %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *configurationSteps) mapEndingReason(ctx context.Context, versionID string, reason int, resultType string) error {
	body := map[string]any{
		"completion_reasons": map[string]any{
			fmt.Sprint(reason): map[string]string{"result_type_ref": resultType},
		},
	}
	if err := s.tc.Do(ctx, http.MethodPut, "/configurations/"+versionID, body, s.tc.AdminHeaders()); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("configuration update rejected with %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *configurationSteps) fetch(ctx context.Context, versionID string) error {
	return s.tc.Do(ctx, http.MethodGet, "/configurations/"+versionID, nil, s.tc.AdminHeaders())
}

func (s *configurationSteps) endingReasonShouldMapTo(_ context.Context, reason int, resultType string) error {
	v, err := s.tc.ResponseField(fmt.Sprintf("completion_reasons.%d.result_type_ref", reason))
	if err != nil {
		return err
	}
	if v != resultType {
		return fmt.Errorf("expected ending reason %d to map to %s, got %v", reason, resultType, v)
	}
	return nil
}
