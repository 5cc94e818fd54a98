package store

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"zac/internal/platform/outbox"
	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/relation"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

// maxAncestors bounds the cycle check walk.
const maxAncestors = 1000

type state struct {
	cases     map[id.CaseID]*models.Case
	byIdent   map[string]id.CaseID
	relations []models.CaseRelation
	parents   map[id.CaseID]id.CaseID
}

func newState() *state {
	return &state{
		cases:   make(map[id.CaseID]*models.Case),
		byIdent: make(map[string]id.CaseID),
		parents: make(map[id.CaseID]id.CaseID),
	}
}

func (st *state) clone() *state {
	out := &state{
		cases:     make(map[id.CaseID]*models.Case, len(st.cases)),
		byIdent:   make(map[string]id.CaseID, len(st.byIdent)),
		relations: slices.Clone(st.relations),
		parents:   make(map[id.CaseID]id.CaseID, len(st.parents)),
	}
	for k, v := range st.cases {
		out.cases[k] = v.Clone()
	}
	for k, v := range st.byIdent {
		out.byIdent[k] = v
	}
	for k, v := range st.parents {
		out.parents[k] = v
	}
	return out
}

// InMemory stores cases, relations and parent links in process. Transactions
// run one at a time on a copy of the state that replaces the live state on
// success, so readers never see uncommitted writes.
type InMemory struct {
	mu      sync.RWMutex
	st      *state
	txMu    sync.Mutex
	outbox  *outbox.InMemory
	timeout time.Duration
}

// NewInMemory constructs an empty store. Messages appended inside committed
// transactions land in ob.
func NewInMemory(ob *outbox.InMemory) *InMemory {
	if ob == nil {
		ob = outbox.NewInMemory()
	}
	return &InMemory{st: newState(), outbox: ob}
}

// Outbox returns the outbox committed messages are written to.
func (s *InMemory) Outbox() *outbox.InMemory {
	return s.outbox
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := &memTx{st: s.st.clone()}
	s.mu.RUnlock()

	if err := fn(ctx, ports.Stores{Cases: work, Relations: work, Outbox: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	s.mu.Lock()
	s.st = work.st
	s.mu.Unlock()
	return s.outbox.Append(ctx, work.pending...)
}

// write runs a single write as its own transaction.
func (s *InMemory) write(ctx context.Context, fn func(tx *memTx) error) error {
	return s.RunInTx(ctx, func(_ context.Context, stores ports.Stores) error {
		return fn(stores.Cases.(*memTx))
	})
}

func (s *InMemory) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{st: s.st}).FindByID(ctx, caseID)
}

func (s *InMemory) FindByIdentification(ctx context.Context, identification string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{st: s.st}).FindByIdentification(ctx, identification)
}

func (s *InMemory) Create(ctx context.Context, c *models.Case) error {
	return s.write(ctx, func(tx *memTx) error { return tx.Create(ctx, c) })
}

func (s *InMemory) Update(ctx context.Context, c *models.Case, expectedVersion int64) error {
	return s.write(ctx, func(tx *memTx) error { return tx.Update(ctx, c, expectedVersion) })
}

func (s *InMemory) AddRelation(ctx context.Context, r models.CaseRelation) (bool, error) {
	var inserted bool
	err := s.write(ctx, func(tx *memTx) error {
		var err error
		inserted, err = tx.AddRelation(ctx, r)
		return err
	})
	return inserted, err
}

func (s *InMemory) RemoveRelation(ctx context.Context, r models.CaseRelation) error {
	return s.write(ctx, func(tx *memTx) error { return tx.RemoveRelation(ctx, r) })
}

func (s *InMemory) SetParent(ctx context.Context, link models.ParentLink) error {
	return s.write(ctx, func(tx *memTx) error { return tx.SetParent(ctx, link) })
}

func (s *InMemory) ClearParent(ctx context.Context, child id.CaseID) error {
	return s.write(ctx, func(tx *memTx) error { return tx.ClearParent(ctx, child) })
}

func (s *InMemory) ListRelations(ctx context.Context, source id.CaseID) ([]models.CaseRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{st: s.st}).ListRelations(ctx, source)
}

func (s *InMemory) ParentOf(ctx context.Context, child id.CaseID) (id.CaseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{st: s.st}).ParentOf(ctx, child)
}

func (s *InMemory) ChildrenOf(ctx context.Context, parent id.CaseID) ([]id.CaseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{st: s.st}).ChildrenOf(ctx, parent)
}

// memTx is the view of the state inside one transaction.
type memTx struct {
	st      *state
	pending []outbox.Message
}

func (t *memTx) Append(_ context.Context, msgs ...outbox.Message) error {
	t.pending = append(t.pending, msgs...)
	return nil
}

func (t *memTx) FindByID(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	c, ok := t.st.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (t *memTx) FindByIdentification(ctx context.Context, identification string) (*models.Case, error) {
	caseID, ok := t.st.byIdent[identification]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.FindByID(ctx, caseID)
}

func (t *memTx) Create(_ context.Context, c *models.Case) error {
	if _, ok := t.st.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := t.st.byIdent[c.Identification]; ok {
		return sentinel.ErrConflict
	}
	if c.Version == 0 {
		c.Version = 1
	}
	stored := c.Clone()
	stored.ParentID = nil
	t.st.cases[c.ID] = stored
	t.st.byIdent[c.Identification] = c.ID
	return nil
}

func (t *memTx) Update(_ context.Context, c *models.Case, expectedVersion int64) error {
	current, ok := t.st.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrStale
	}
	if current.Identification != c.Identification {
		if _, taken := t.st.byIdent[c.Identification]; taken {
			return sentinel.ErrConflict
		}
		delete(t.st.byIdent, current.Identification)
		t.st.byIdent[c.Identification] = c.ID
	}
	c.Version = expectedVersion + 1
	stored := c.Clone()
	stored.ParentID = nil
	t.st.cases[c.ID] = stored
	return nil
}

func (t *memTx) AddRelation(_ context.Context, r models.CaseRelation) (bool, error) {
	if slices.Contains(t.st.relations, r) {
		return false, nil
	}
	t.st.relations = append(t.st.relations, r)
	return true, nil
}

func (t *memTx) RemoveRelation(_ context.Context, r models.CaseRelation) error {
	i := slices.Index(t.st.relations, r)
	if i < 0 {
		return sentinel.ErrNotFound
	}
	t.st.relations = slices.Delete(t.st.relations, i, i+1)
	return nil
}

func (t *memTx) ListRelations(_ context.Context, source id.CaseID) ([]models.CaseRelation, error) {
	out := []models.CaseRelation{}
	for _, r := range t.st.relations {
		if r.SourceID == source {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) ParentOf(_ context.Context, child id.CaseID) (id.CaseID, error) {
	parent, ok := t.st.parents[child]
	if !ok {
		return id.CaseID{}, sentinel.ErrNotFound
	}
	return parent, nil
}

func (t *memTx) SetParent(_ context.Context, link models.ParentLink) error {
	if _, ok := t.st.parents[link.ChildID]; ok {
		return sentinel.ErrConflict
	}
	cur := link.ParentID
	for i := 0; i < maxAncestors; i++ {
		if cur == link.ChildID {
			return relation.ErrCycle
		}
		next, ok := t.st.parents[cur]
		if !ok {
			break
		}
		cur = next
	}
	t.st.parents[link.ChildID] = link.ParentID
	return nil
}

func (t *memTx) ClearParent(_ context.Context, child id.CaseID) error {
	if _, ok := t.st.parents[child]; !ok {
		return sentinel.ErrNotFound
	}
	delete(t.st.parents, child)
	return nil
}

func (t *memTx) ChildrenOf(_ context.Context, parent id.CaseID) ([]id.CaseID, error) {
	out := []id.CaseID{}
	for child, p := range t.st.parents {
		if p == parent {
			out = append(out, child)
		}
	}
	slices.SortFunc(out, func(a, b id.CaseID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out, nil
}
