package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	catalog "zac/internal/catalog/models"
	cfgmodels "zac/internal/configuration/models"
	"zac/internal/zaak/models"
	dErrors "zac/pkg/domain-errors"
)

const gatherTimeout = 10 * time.Second

// needs selects the collaborator reads a transition depends on. The
// permission verdict is always read.
type needs struct {
	tasks         bool
	decision      bool
	caseType      bool
	configuration bool
}

// inputs is everything a transition reads besides the case itself.
type inputs struct {
	mayMutate   bool
	openTasks   []models.Task
	hasDecision bool
	caseType    *catalog.CaseType
	// configuration is nil when the case type has none yet.
	configuration *cfgmodels.Configuration
}

// gather reads the collaborator inputs for c in parallel. The first failure
// cancels the remaining reads.
func (s *Service) gather(ctx context.Context, c *models.Case, n needs) (*inputs, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	in := &inputs{}

	g.Go(func() error {
		may, err := s.permissions.MayMutate(ctx, c)
		if err != nil {
			return collaboratorError(err, "failed to evaluate permissions")
		}
		in.mayMutate = may
		return nil
	})

	if n.tasks {
		g.Go(func() error {
			tasks, err := s.tasks.ListOpenTasks(ctx, c.ID)
			if err != nil {
				return collaboratorError(err, "failed to list open tasks")
			}
			in.openTasks = tasks
			return nil
		})
	}

	if n.decision {
		g.Go(func() error {
			has, err := s.decisions.HasAttachedDecision(ctx, c)
			if err != nil {
				return collaboratorError(err, "failed to read decisions")
			}
			in.hasDecision = has
			return nil
		})
	}

	if n.caseType {
		g.Go(func() error {
			ct, err := s.catalog.ReadCaseType(ctx, c.CaseTypeVersionID)
			if err != nil {
				return collaboratorError(err, "failed to read case type")
			}
			in.caseType = &ct
			return nil
		})
	}

	if n.configuration {
		g.Go(func() error {
			cfg, err := s.configs.Resolve(ctx, c.CaseTypeVersionID)
			if err != nil {
				// The transition decides what a missing configuration means.
				if dErrors.HasCode(err, dErrors.CodeConfigurationNotFound) {
					return nil
				}
				return collaboratorError(err, "failed to resolve configuration")
			}
			in.configuration = cfg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func collaboratorError(err error, msg string) error {
	if dErrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
