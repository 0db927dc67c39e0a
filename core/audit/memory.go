package audit

import (
	"context"
	"sort"
	"sync"
)

// Reader answers history queries, newest first.
type Reader interface {
	Find(ctx context.Context, q Query) ([]Fact, error)
}

// MemoryLog is an in-memory Sink and Reader.
type MemoryLog struct {
	mu    sync.RWMutex
	facts []Fact
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (m *MemoryLog) Record(_ context.Context, f Fact) error {
	m.mu.Lock()
	m.facts = append(m.facts, f)
	m.mu.Unlock()
	return nil
}

func (m *MemoryLog) Find(_ context.Context, q Query) ([]Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := clampLimit(q.Limit)
	var res []Fact
	for i := len(m.facts) - 1; i >= 0; i-- {
		if q.Matches(m.facts[i]) {
			res = append(res, m.facts[i])
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].OccurredAt.After(res[j].OccurredAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// All returns a copy of every recorded fact in recording order.
func (m *MemoryLog) All() []Fact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Fact, len(m.facts))
	copy(out, m.facts)
	return out
}
