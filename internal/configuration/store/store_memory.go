package store

import (
	"context"
	"errors"
	"hash/fnv"
	"maps"
	"sync"
	"time"

	"zac/internal/configuration/models"
	"zac/internal/configuration/resolver"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
)

// numShards spreads transaction locks by key so unrelated case types do not contend.
const numShards = 128

// defaultTxTimeout bounds a transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

type record struct {
	cfg *models.Configuration
	seq int64
}

// InMemory is a configuration store for tests and single-node runs.
// Writes made inside RunInTx are staged and applied together on success.
type InMemory struct {
	mu       sync.RWMutex
	configs  map[id.CaseTypeVersionID]record
	bindings map[id.CaseTypeVersionID]map[string]string
	seq      int64

	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		configs:  make(map[id.CaseTypeVersionID]record),
		bindings: make(map[id.CaseTypeVersionID]map[string]string),
	}
}

func (s *InMemory) FindByVersionID(_ context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(versionID)
}

func (s *InMemory) findLocked(versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	r, ok := s.configs[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := r.cfg.Clone()
	out.MailTemplateBindings = maps.Clone(s.bindings[versionID])
	if out.MailTemplateBindings == nil {
		out.MailTemplateBindings = map[string]string{}
	}
	return out, nil
}

func (s *InMemory) FindLatestByDescription(_ context.Context, description string) (*models.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *record
	for _, r := range s.configs {
		if r.cfg.CaseTypeDescription != description {
			continue
		}
		if latest == nil || newer(r, *latest) {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return s.findLocked(latest.cfg.CaseTypeVersionID)
}

func newer(a, b record) bool {
	if !a.cfg.CreatedAt.Equal(b.cfg.CreatedAt) {
		return a.cfg.CreatedAt.After(b.cfg.CreatedAt)
	}
	return a.seq > b.seq
}

func (s *InMemory) Create(_ context.Context, cfg *models.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(cfg)
}

func (s *InMemory) createLocked(cfg *models.Configuration) error {
	if _, ok := s.configs[cfg.CaseTypeVersionID]; ok {
		return sentinel.ErrConflict
	}
	s.seq++
	stored := cfg.Clone()
	stored.MailTemplateBindings = nil
	s.configs[cfg.CaseTypeVersionID] = record{cfg: stored, seq: s.seq}
	return nil
}

func (s *InMemory) Update(_ context.Context, cfg *models.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(cfg)
}

func (s *InMemory) updateLocked(cfg *models.Configuration) error {
	r, ok := s.configs[cfg.CaseTypeVersionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored := cfg.Clone()
	stored.MailTemplateBindings = nil
	s.configs[cfg.CaseTypeVersionID] = record{cfg: stored, seq: r.seq}
	return nil
}

func (s *InMemory) CopyBindings(_ context.Context, from, to id.CaseTypeVersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyBindingsLocked(from, to)
}

func (s *InMemory) copyBindingsLocked(from, to id.CaseTypeVersionID) error {
	if _, ok := s.configs[to]; !ok {
		return sentinel.ErrNotFound
	}
	src := s.bindings[from]
	if len(src) == 0 {
		return nil
	}
	dst := s.bindings[to]
	if dst == nil {
		dst = make(map[string]string, len(src))
		s.bindings[to] = dst
	}
	for kind, tmpl := range src {
		if _, exists := dst[kind]; !exists {
			dst[kind] = tmpl
		}
	}
	return nil
}

func (s *InMemory) ReplaceBindings(_ context.Context, versionID id.CaseTypeVersionID, bindings map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceBindingsLocked(versionID, bindings)
}

func (s *InMemory) replaceBindingsLocked(versionID id.CaseTypeVersionID, bindings map[string]string) error {
	if _, ok := s.configs[versionID]; !ok {
		return sentinel.ErrNotFound
	}
	s.bindings[versionID] = maps.Clone(bindings)
	return nil
}

// RunInTx serializes transactions per key and applies fn's writes atomically.
// Nothing is applied when fn fails.
func (s *InMemory) RunInTx(ctx context.Context, key string, fn func(store resolver.Store) error) error {
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

	shard := &s.shards[shardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := &memTx{base: s}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}

type stagedOp func(s *InMemory) error

// memTx reads through to the base store and stages writes until commit.
type memTx struct {
	base    *InMemory
	ops     []stagedOp
	staged  map[id.CaseTypeVersionID]*models.Configuration
	created []id.CaseTypeVersionID
}

func (t *memTx) view(versionID id.CaseTypeVersionID) (*models.Configuration, bool) {
	cfg, ok := t.staged[versionID]
	return cfg, ok
}

func (t *memTx) stage(cfg *models.Configuration) {
	if t.staged == nil {
		t.staged = make(map[id.CaseTypeVersionID]*models.Configuration)
	}
	t.staged[cfg.CaseTypeVersionID] = cfg.Clone()
}

func (t *memTx) FindByVersionID(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	if cfg, ok := t.view(versionID); ok {
		return cfg.Clone(), nil
	}
	return t.base.FindByVersionID(ctx, versionID)
}

func (t *memTx) FindLatestByDescription(ctx context.Context, description string) (*models.Configuration, error) {
	// Records created in this transaction are the newest for their description.
	for i := len(t.created) - 1; i >= 0; i-- {
		if cfg := t.staged[t.created[i]]; cfg.CaseTypeDescription == description {
			return cfg.Clone(), nil
		}
	}
	cfg, err := t.base.FindLatestByDescription(ctx, description)
	if err != nil {
		return nil, err
	}
	if staged, ok := t.view(cfg.CaseTypeVersionID); ok {
		return staged.Clone(), nil
	}
	return cfg, nil
}

func (t *memTx) Create(ctx context.Context, cfg *models.Configuration) error {
	if _, ok := t.view(cfg.CaseTypeVersionID); ok {
		return sentinel.ErrConflict
	}
	if _, err := t.base.FindByVersionID(ctx, cfg.CaseTypeVersionID); err == nil {
		return sentinel.ErrConflict
	}
	t.stage(cfg)
	t.created = append(t.created, cfg.CaseTypeVersionID)
	c := cfg.Clone()
	t.ops = append(t.ops, func(s *InMemory) error { return s.createLocked(c) })
	return nil
}

func (t *memTx) Update(ctx context.Context, cfg *models.Configuration) error {
	if _, err := t.FindByVersionID(ctx, cfg.CaseTypeVersionID); err != nil {
		return err
	}
	t.stage(cfg)
	c := cfg.Clone()
	t.ops = append(t.ops, func(s *InMemory) error { return s.updateLocked(c) })
	return nil
}

func (t *memTx) CopyBindings(ctx context.Context, from, to id.CaseTypeVersionID) error {
	src, err := t.FindByVersionID(ctx, from)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	dst, err := t.FindByVersionID(ctx, to)
	if err != nil {
		return err
	}
	if src != nil {
		for kind, tmpl := range src.MailTemplateBindings {
			if _, exists := dst.MailTemplateBindings[kind]; !exists {
				dst.MailTemplateBindings[kind] = tmpl
			}
		}
		t.stage(dst)
	}
	t.ops = append(t.ops, func(s *InMemory) error { return s.copyBindingsLocked(from, to) })
	return nil
}

func (t *memTx) ReplaceBindings(ctx context.Context, versionID id.CaseTypeVersionID, bindings map[string]string) error {
	cfg, err := t.FindByVersionID(ctx, versionID)
	if err != nil {
		return err
	}
	cfg.MailTemplateBindings = maps.Clone(bindings)
	t.stage(cfg)
	b := maps.Clone(bindings)
	t.ops = append(t.ops, func(s *InMemory) error { return s.replaceBindingsLocked(versionID, b) })
	return nil
}

func (t *memTx) commit() error {
	s := t.base
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate before applying so a conflicting concurrent writer leaves no partial state.
	for _, v := range t.created {
		if _, exists := s.configs[v]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, op := range t.ops {
		if err := op(s); err != nil {
			return err
		}
	}
	return nil
}
