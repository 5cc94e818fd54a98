package adapters

import (
	"context"
	"slices"

	"zac/internal/zaak/models"
	"zac/pkg/requestcontext"
)

// GroupPermissions lets an employee change a case that is assigned to them,
// to one of their groups, or to nobody. Members of the administrator group may
// change any case. Requests without an actor are refused.
type GroupPermissions struct {
	adminGroup string
}

func NewGroupPermissions(adminGroup string) *GroupPermissions {
	return &GroupPermissions{adminGroup: adminGroup}
}

func (p *GroupPermissions) MayMutate(ctx context.Context, c *models.Case) (bool, error) {
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		return false, nil
	}
	groups := requestcontext.Groups(ctx)
	switch {
	case p.adminGroup != "" && slices.Contains(groups, p.adminGroup):
		return true, nil
	case c.AssignedUser == "" && c.AssignedGroup == "":
		return true, nil
	case c.AssignedUser != "" && c.AssignedUser == actor:
		return true, nil
	case c.AssignedGroup != "" && slices.Contains(groups, c.AssignedGroup):
		return true, nil
	default:
		return false, nil
	}
}
