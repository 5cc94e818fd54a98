package lifecycle

import (
	"slices"

	"zac/internal/zaak/models"
	dErrors "zac/pkg/domain-errors"
)

// Operation names a lifecycle operation.
type Operation string

const (
	OpSuspend      Operation = "suspend"
	OpResume       Operation = "resume"
	OpExtend       Operation = "extend"
	OpClose        Operation = "close"
	OpTerminate    Operation = "terminate"
	OpReopen       Operation = "reopen"
	OpSetInitiator Operation = "set_initiator"
)

type transition struct {
	from []models.Status
	// to is empty when the operation keeps the status.
	to models.Status
}

// transitions is the whole state machine. Reopen is a separate edge out of
// CLOSED; TERMINATED has no way out.
var transitions = map[Operation]transition{
	OpSuspend:      {from: []models.Status{models.StatusOpen}, to: models.StatusSuspended},
	OpResume:       {from: []models.Status{models.StatusSuspended}, to: models.StatusOpen},
	OpExtend:       {from: []models.Status{models.StatusOpen}},
	OpClose:        {from: []models.Status{models.StatusOpen}, to: models.StatusClosed},
	OpTerminate:    {from: []models.Status{models.StatusOpen}, to: models.StatusTerminated},
	OpReopen:       {from: []models.Status{models.StatusClosed}, to: models.StatusOpen},
	OpSetInitiator: {from: []models.Status{models.StatusOpen, models.StatusSuspended}},
}

// guard checks the case may undergo op and returns the status it ends in.
func guard(c *models.Case, op Operation) (models.Status, error) {
	t, ok := transitions[op]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInternal, "unknown operation %q", op)
	}
	if !slices.Contains(t.from, c.Status) {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition, "cannot %s a case that is %s", op, c.Status)
	}
	if t.to == "" {
		return c.Status, nil
	}
	return t.to, nil
}

// Allowed reports whether op is permitted from status.
func Allowed(op Operation, status models.Status) bool {
	t, ok := transitions[op]
	return ok && slices.Contains(t.from, status)
}
