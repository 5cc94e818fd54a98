package cases

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(ctx context.Context, path string, body any) error
	GET(ctx context.Context, path string) error
	LastStatus() int
	LastBody() string
	ResponseField(path string) (any, error)
	RememberCase(alias, caseID string)
	CaseID(alias string) (string, error)
}

// RegisterSteps registers case lifecycle and relation steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &caseSteps{tc: tc}

	ctx.Step(`^case "([^"]*)" is opened from case type version "([^"]*)"$`, steps.caseIsOpened)
	ctx.Step(`^I open case "([^"]*)" from case type version "([^"]*)"$`, steps.openCase)

	ctx.Step(`^I suspend case "([^"]*)" for (\d+) days with reason "([^"]*)"$`, steps.suspend)
	ctx.Step(`^I resume case "([^"]*)"$`, steps.resume)
	ctx.Step(`^I extend case "([^"]*)" by (\d+) days$`, steps.extend)
	ctx.Step(`^I terminate case "([^"]*)" with ending reason "([^"]*)"$`, steps.terminate)
	ctx.Step(`^I close case "([^"]*)" with result type "([^"]*)"$`, steps.closeCase)
	ctx.Step(`^I reopen case "([^"]*)"$`, steps.reopen)

	ctx.Step(`^I link case "([^"]*)" to case "([^"]*)" as "([^"]*)" with reverse "([^"]*)"$`, steps.link)
	ctx.Step(`^I make case "([^"]*)" the parent of case "([^"]*)"$`, steps.makeParent)

	ctx.Step(`^case "([^"]*)" should have status "([^"]*)"$`, steps.shouldHaveStatus)
	ctx.Step(`^case "([^"]*)" should have (\d+) relations?$`, steps.shouldHaveRelations)
	ctx.Step(`^case "([^"]*)" should have (\d+) children$`, steps.shouldHaveChildren)
}

type caseSteps struct {
	tc TestContext
}

var startDate = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func (s *caseSteps) openCase(ctx context.Context, alias, versionID string) error {
	body := map[string]any{
		// Identifications are unique per server, scenarios are not.
		"identification":           fmt.Sprintf("E2E-%s-%08d", alias, rand.IntN(100_000_000)),
		"case_type_version_id":     versionID,
		"start_date":               startDate,
		"ultimate_completion_date": startDate.AddDate(0, 0, 56),
	}
	if err := s.tc.POST(ctx, "/zaken", body); err != nil {
		return err
	}
	if s.tc.LastStatus() != 201 {
		return nil
	}
	caseID, err := s.tc.ResponseField("case.id")
	if err != nil {
		return err
	}
	s.tc.RememberCase(alias, fmt.Sprint(caseID))
	return nil
}

func (s *caseSteps) caseIsOpened(ctx context.Context, alias, versionID string) error {
	if err := s.openCase(ctx, alias, versionID); err != nil {
		return err
	}
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("opening case %q failed with %d: %s", alias, s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *caseSteps) post(ctx context.Context, alias, action string, body any) error {
	caseID, err := s.tc.CaseID(alias)
	if err != nil {
		return err
	}
	return s.tc.POST(ctx, "/zaken/"+caseID+"/"+action, body)
}

func (s *caseSteps) suspend(ctx context.Context, alias string, days int, reason string) error {
	return s.post(ctx, alias, "suspend", map[string]any{"reason": reason, "expected_days": days})
}

func (s *caseSteps) resume(ctx context.Context, alias string) error {
	return s.post(ctx, alias, "resume", map[string]any{"reason": "e2e"})
}

func (s *caseSteps) extend(ctx context.Context, alias string, days int) error {
	return s.post(ctx, alias, "extend", map[string]any{"extra_days": days, "reason": "e2e"})
}

func (s *caseSteps) terminate(ctx context.Context, alias, endingReason string) error {
	return s.post(ctx, alias, "terminate", map[string]any{"ending_reason_id": endingReason, "reason": "e2e"})
}

func (s *caseSteps) closeCase(ctx context.Context, alias, resultType string) error {
	return s.post(ctx, alias, "close", map[string]any{"result_type_ref": resultType, "reason": "e2e"})
}

func (s *caseSteps) reopen(ctx context.Context, alias string) error {
	return s.post(ctx, alias, "reopen", map[string]any{"reason": "e2e"})
}

func (s *caseSteps) link(ctx context.Context, source, target, kind, reverse string) error {
	targetID, err := s.tc.CaseID(target)
	if err != nil {
		return err
	}
	return s.post(ctx, source, "relations", map[string]any{
		"target_id":    targetID,
		"kind":         kind,
		"reverse_kind": reverse,
	})
}

func (s *caseSteps) makeParent(ctx context.Context, parent, child string) error {
	childID, err := s.tc.CaseID(child)
	if err != nil {
		return err
	}
	return s.post(ctx, parent, "relations", map[string]any{
		"target_id":       childID,
		"kind":            "PARENT_CHILD",
		"child_is_target": true,
	})
}

func (s *caseSteps) get(ctx context.Context, alias, suffix string) error {
	caseID, err := s.tc.CaseID(alias)
	if err != nil {
		return err
	}
	if err := s.tc.GET(ctx, "/zaken/"+caseID+suffix); err != nil {
		return err
	}
	if s.tc.LastStatus() != 200 {
		return fmt.Errorf("GET case %q%s returned %d: %s", alias, suffix, s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *caseSteps) shouldHaveStatus(ctx context.Context, alias, status string) error {
	if err := s.get(ctx, alias, ""); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("status")
	if err != nil {
		return err
	}
	if got != status {
		return fmt.Errorf("expected case %q to be %s, got %v", alias, status, got)
	}
	return nil
}

func (s *caseSteps) shouldHaveRelations(ctx context.Context, alias string, n int) error {
	return s.countList(ctx, alias, "/relations", "relations", n)
}

func (s *caseSteps) shouldHaveChildren(ctx context.Context, alias string, n int) error {
	return s.countList(ctx, alias, "/children", "children", n)
}

func (s *caseSteps) countList(ctx context.Context, alias, suffix, field string, n int) error {
	if err := s.get(ctx, alias, suffix); err != nil {
		return err
	}
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	list, _ := v.([]any)
	if len(list) != n {
		return fmt.Errorf("expected %d %s on case %q, got %d: %s", n, field, alias, len(list), s.tc.LastBody())
	}
	return nil
}
