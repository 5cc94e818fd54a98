// Package relation manages the parent/child tree (hoofdzaak/deelzaak) and the
// typed relation graph between cases.
//
// Typed relations are directed and never mirrored implicitly: a reverse edge
// is a second relation, possibly of another kind. The parent/child tree is
// kept acyclic and a child has at most one parent.
package relation

import (
	"context"
	"errors"
	"log/slog"

	"zac/internal/zaak/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	"zac/pkg/requestcontext"
)

// maxDepth bounds the ancestor walk of the cycle check.
const maxDepth = 1000

// ErrCycle is returned by Store.SetParent when the link would make a case its
// own ancestor.
var ErrCycle = errors.New("parent link would create a cycle")

// Store persists relations and parent links. RemoveRelation, ParentOf and
// ClearParent return sentinel.ErrNotFound when there is nothing to find.
// SetParent returns sentinel.ErrConflict when the child already has a parent
// and ErrCycle when the link would close a cycle.
type Store interface {
	AddRelation(ctx context.Context, r models.CaseRelation) (inserted bool, err error)
	RemoveRelation(ctx context.Context, r models.CaseRelation) error
	ListRelations(ctx context.Context, source id.CaseID) ([]models.CaseRelation, error)
	ParentOf(ctx context.Context, child id.CaseID) (id.CaseID, error)
	SetParent(ctx context.Context, link models.ParentLink) error
	ClearParent(ctx context.Context, child id.CaseID) error
	ChildrenOf(ctx context.Context, parent id.CaseID) ([]id.CaseID, error)
}

// LinkRequest links Source to Target.
type LinkRequest struct {
	Source id.CaseID
	Target id.CaseID
	Kind   models.RelationKind
	// ReverseKind, when set, also links Target back to Source.
	ReverseKind models.RelationKind
	// ChildIsTarget picks the child for PARENT_CHILD links.
	ChildIsTarget   bool
	MayMutateSource bool
	MayMutateTarget bool
}

// UnlinkRequest removes the edge Source->Target of Kind.
type UnlinkRequest struct {
	Source          id.CaseID
	Target          id.CaseID
	Kind            models.RelationKind
	Reason          string
	MayMutateSource bool
	MayMutateTarget bool
}

// Manager applies relation changes to a Store. It is stateless; callers pass
// the store so changes can join their transaction.
type Manager struct {
	logger *slog.Logger
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Link adds the requested edge. Adding an edge that already exists is a no-op
// and yields an empty outcome.
func (m *Manager) Link(ctx context.Context, store Store, req LinkRequest) (*models.Outcome, error) {
	if err := checkPair(req.Source, req.Target, req.Kind, req.MayMutateSource, req.MayMutateTarget); err != nil {
		return nil, err
	}
	if req.Kind == models.RelationParentChild {
		child, parent := req.Source, req.Target
		if req.ChildIsTarget {
			child, parent = req.Target, req.Source
		}
		return m.linkParent(ctx, store, child, parent)
	}

	if req.Source == req.Target {
		return nil, dErrors.New(dErrors.CodeValidation, "a case cannot be related to itself")
	}
	if req.ReverseKind == models.RelationParentChild {
		return nil, dErrors.New(dErrors.CodeValidation, "reverse kind cannot be PARENT_CHILD")
	}
	if req.ReverseKind != "" && !req.ReverseKind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown reverse relation kind %q", req.ReverseKind)
	}

	edges := []models.CaseRelation{{SourceID: req.Source, TargetID: req.Target, Kind: req.Kind}}
	if req.ReverseKind != "" {
		edges = append(edges, models.CaseRelation{SourceID: req.Target, TargetID: req.Source, Kind: req.ReverseKind})
	}

	now := requestcontext.Now(ctx)
	out := &models.Outcome{}
	for _, edge := range edges {
		inserted, err := store.AddRelation(ctx, edge)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add relation")
		}
		if !inserted {
			continue
		}
		out.Events = append(out.Events, models.Event{Type: models.EventCaseLinked, CaseID: edge.SourceID, OccurredAt: now})
		out.Instructions = append(out.Instructions, models.Instruction{Kind: models.InstructionReindexCase, CaseID: edge.SourceID})
		m.logger.InfoContext(ctx, "cases linked",
			"source_id", edge.SourceID,
			"target_id", edge.TargetID,
			"kind", edge.Kind,
		)
	}
	return out, nil
}

func (m *Manager) linkParent(ctx context.Context, store Store, child, parent id.CaseID) (*models.Outcome, error) {
	if child == parent {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a case cannot be its own parent")
	}

	current, err := store.ParentOf(ctx, child)
	switch {
	case err == nil && current == parent:
		return &models.Outcome{}, nil
	case err == nil:
		return nil, dErrors.Newf(dErrors.CodeConflict, "case %s already has parent %s", child, current)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read parent")
	}

	if err := ensureNotAncestor(ctx, store, child, parent); err != nil {
		return nil, err
	}
	if err := store.SetParent(ctx, models.ParentLink{ChildID: child, ParentID: parent}); err != nil {
		if errors.Is(err, ErrCycle) {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "linking %s under %s would create a cycle", child, parent)
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "case %s already has a parent", child)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set parent")
	}

	m.logger.InfoContext(ctx, "parent linked", "child_id", child, "parent_id", parent)
	return parentOutcome(ctx, models.EventCaseLinked, child, parent, ""), nil
}

// ensureNotAncestor fails when child is parent or one of parent's ancestors.
func ensureNotAncestor(ctx context.Context, store Store, child, parent id.CaseID) error {
	cur := parent
	for depth := 0; depth < maxDepth; depth++ {
		if cur == child {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "linking %s under %s would create a cycle", child, parent)
		}
		next, err := store.ParentOf(ctx, cur)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk ancestors")
		}
		cur = next
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "case tree too deep")
}

// Unlink removes exactly the matching edge. For PARENT_CHILD the link is
// cleared in whichever direction it exists.
func (m *Manager) Unlink(ctx context.Context, store Store, req UnlinkRequest) (*models.Outcome, error) {
	if err := checkPair(req.Source, req.Target, req.Kind, req.MayMutateSource, req.MayMutateTarget); err != nil {
		return nil, err
	}
	if req.Kind == models.RelationParentChild {
		return m.unlinkParent(ctx, store, req)
	}

	edge := models.CaseRelation{SourceID: req.Source, TargetID: req.Target, Kind: req.Kind}
	if err := store.RemoveRelation(ctx, edge); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "relation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove relation")
	}
	m.logger.InfoContext(ctx, "cases unlinked",
		"source_id", edge.SourceID,
		"target_id", edge.TargetID,
		"kind", edge.Kind,
		"reason", req.Reason,
	)
	return &models.Outcome{
		Instructions: []models.Instruction{{Kind: models.InstructionReindexCase, CaseID: edge.SourceID, Reason: req.Reason}},
		Events:       []models.Event{{Type: models.EventCaseUnlinked, CaseID: edge.SourceID, OccurredAt: requestcontext.Now(ctx)}},
	}, nil
}

func (m *Manager) unlinkParent(ctx context.Context, store Store, req UnlinkRequest) (*models.Outcome, error) {
	for _, pair := range [][2]id.CaseID{{req.Target, req.Source}, {req.Source, req.Target}} {
		child, parent := pair[0], pair[1]
		current, err := store.ParentOf(ctx, child)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read parent")
		}
		if current != parent {
			continue
		}
		if err := store.ClearParent(ctx, child); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear parent")
		}
		m.logger.InfoContext(ctx, "parent unlinked", "child_id", child, "parent_id", parent, "reason", req.Reason)
		return parentOutcome(ctx, models.EventCaseUnlinked, child, parent, req.Reason), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "parent link not found")
}

// ListRelations returns the outgoing relations of a case.
func (m *Manager) ListRelations(ctx context.Context, store Store, caseID id.CaseID) ([]models.CaseRelation, error) {
	rels, err := store.ListRelations(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list relations")
	}
	return rels, nil
}

// Parent returns the parent of a case, or nil when it has none.
func (m *Manager) Parent(ctx context.Context, store Store, caseID id.CaseID) (*id.CaseID, error) {
	parent, err := store.ParentOf(ctx, caseID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read parent")
	}
	return &parent, nil
}

// Children returns the direct children of a case.
func (m *Manager) Children(ctx context.Context, store Store, caseID id.CaseID) ([]id.CaseID, error) {
	children, err := store.ChildrenOf(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list children")
	}
	return children, nil
}

func checkPair(source, target id.CaseID, kind models.RelationKind, maySource, mayTarget bool) error {
	if source.IsNil() || target.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "both cases are required")
	}
	if !kind.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown relation kind %q", kind)
	}
	if !maySource || !mayTarget {
		return dErrors.New(dErrors.CodeForbidden, "not allowed to change relations of both cases")
	}
	return nil
}

// parentOutcome notifies the parent explicitly: the registry does not tell the
// parent when a child is attached or detached.
func parentOutcome(ctx context.Context, event models.EventType, child, parent id.CaseID, reason string) *models.Outcome {
	now := requestcontext.Now(ctx)
	return &models.Outcome{
		Instructions: []models.Instruction{
			{Kind: models.InstructionReindexCase, CaseID: child, Reason: reason},
			{Kind: models.InstructionNotifyParent, CaseID: parent, Reason: reason},
		},
		Events: []models.Event{
			{Type: event, CaseID: child, OccurredAt: now},
			{Type: event, CaseID: parent, OccurredAt: now},
		},
	}
}
