package cycle

import (
	"context"
	"errors"
	"sort"
	"sync"

	"competency/internal/domain/assessment"
)

type MemoryStore struct {
	mu     sync.RWMutex
	cycles map[string]Cycle
}

func NewMemoryStore(cycles ...Cycle) *MemoryStore {
	m := &MemoryStore{cycles: map[string]Cycle{}}
	for _, c := range cycles {
		m.cycles[c.ID] = c
	}
	return m
}

func (m *MemoryStore) Put(c Cycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[c.ID] = c
}

func (m *MemoryStore) Get(_ context.Context, tenantID, cycleID string) (Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cycles[cycleID]
	if !ok || c.TenantID != tenantID {
		return Cycle{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) List(_ context.Context, tenantID string) ([]Cycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Cycle
	for _, c := range m.cycles {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AllowsType(ctx context.Context, tenantID, cycleID string, t assessment.Type) (bool, error) {
	c, err := m.Get(ctx, tenantID, cycleID)
	if errors.Is(err, ErrNotFound) {
		return false, unknownCycle
	}
	if err != nil {
		return false, err
	}
	return c.Covers(t), nil
}
