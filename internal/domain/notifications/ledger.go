package notifications

import (
	"context"
	"sync"
	"time"
)

// Ledger records which keys were delivered. Implementations must be durable
// across restarts except MemoryLedger.
type Ledger interface {
	HasSent(ctx context.Context, tenantID string, key Key) (bool, error)
	MarkSent(ctx context.Context, tenantID string, key Key, intentID string) error
}

// Failure is the durable marker left when delivery exhausted its retries.
type Failure struct {
	TenantID  string    `json:"tenantId"`
	IntentID  string    `json:"intentId"`
	Kind      Kind      `json:"kind"`
	Key       *Key      `json:"key,omitempty"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError"`
	At        time.Time `json:"at"`
}

type FailureLog interface {
	RecordFailure(ctx context.Context, f Failure) error
}

// FailureReader lists recorded failures newest first.
type FailureReader interface {
	ListFailures(ctx context.Context, tenantID string, limit, offset int) ([]Failure, error)
}

type MemoryLedger struct {
	mu   sync.Mutex
	sent map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sent: map[string]string{}}
}

func (m *MemoryLedger) HasSent(_ context.Context, tenantID string, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sent[tenantID+"/"+key.String()]
	return ok, nil
}

func (m *MemoryLedger) MarkSent(_ context.Context, tenantID string, key Key, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := tenantID + "/" + key.String()
	if _, ok := m.sent[id]; !ok {
		m.sent[id] = intentID
	}
	return nil
}

func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type MemoryFailureLog struct {
	mu       sync.Mutex
	failures []Failure
}

func (m *MemoryFailureLog) RecordFailure(_ context.Context, f Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, f)
	return nil
}

func (m *MemoryFailureLog) ListFailures(_ context.Context, tenantID string, limit, offset int) ([]Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Failure
	for i := len(m.failures) - 1; i >= 0; i-- {
		if m.failures[i].TenantID == tenantID {
			out = append(out, m.failures[i])
		}
	}
	if offset >= len(out) {
		return []Failure{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryFailureLog) Failures() []Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Failure(nil), m.failures...)
}
