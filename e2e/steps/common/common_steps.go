package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(ctx context.Context, path string) error
	LastStatus() int
	LastBody() string
	ResponseField(path string) (any, error)
	SetActor(actor string, groups []string)
}

// RegisterSteps registers background and assertion steps shared by all features.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the zac API is reachable$`, steps.apiIsReachable)
	ctx.Step(`^I am employee "([^"]*)" in groups "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I am an anonymous caller$`, steps.anonymous)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.responseFieldShouldBeNumber)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsReachable(ctx context.Context) error {
	if err := s.tc.GET(ctx, "/healthz"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) actAs(_ context.Context, actor, groups string) error {
	var list []string
	for _, g := range strings.Split(groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			list = append(list, g)
		}
	}
	s.tc.SetActor(actor, list)
	return nil
}

func (s *commonSteps) anonymous(context.Context) error {
	s.tc.SetActor("", nil)
	return nil
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, status int) error {
	if s.tc.LastStatus() != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.responseFieldShouldBe(ctx, "error", code)
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, expected string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(v) != expected {
		return fmt.Errorf("expected %s to be %q, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNumber(_ context.Context, field string, expected int) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok {
		return fmt.Errorf("expected %s to be a number, got %v", field, v)
	}
	if int(n) != expected {
		return fmt.Errorf("expected %s to be %s, got %v", field, strconv.Itoa(expected), v)
	}
	return nil
}
