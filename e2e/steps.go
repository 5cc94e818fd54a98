package e2e

import (
	"github.com/cucumber/godog"

	"zac/e2e/steps/cases"
	"zac/e2e/steps/common"
	"zac/e2e/steps/configuration"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	cases.RegisterSteps(ctx, tc)
	configuration.RegisterSteps(ctx, tc)
}
