package outbox

import (
	"context"
	"sync"
	"time"
)

// InMemory is an outbox for single-process use and tests.
type InMemory struct {
	mu       sync.Mutex
	messages []Message
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{now: time.Now}
}

func (s *InMemory) Append(_ context.Context, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	return nil
}

// ProcessBatch holds the store lock while fn runs so batches never overlap.
func (s *InMemory) ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx []int
	var batch []Message
	for i, m := range s.messages {
		if m.ProcessedAt != nil {
			continue
		}
		idx = append(idx, i)
		batch = append(batch, m)
		if len(batch) == limit {
			break
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	now := s.now()
	for _, i := range idx {
		s.messages[i].ProcessedAt = &now
	}
	return len(batch), nil
}

// Pending returns the unprocessed messages.
func (s *InMemory) Pending() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.ProcessedAt == nil {
			out = append(out, m)
		}
	}
	return out
}
