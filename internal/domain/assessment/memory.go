package assessment

import (
	"context"
	"sort"
	"sync"
)

// Person is the minimal directory entry the memory store needs to flatten
// snapshots.
type Person struct {
	ID        string
	Name      string
	ManagerID string
}

// MemoryStore is an in-process StoreAPI used by tests and local runs.
type MemoryStore struct {
	mu          sync.Mutex
	assessments map[string]Assessment
	history     map[string][]HistoryEntry
	competency  map[competencyKey]Competency
	people      map[string]Person
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: map[string]Assessment{},
		history:     map[string][]HistoryEntry{},
		competency:  map[competencyKey]Competency{},
		people:      map[string]Person{},
	}
}

// competencyKey scopes the catalogue per tenant, as the competencies table does.
type competencyKey struct {
	tenantID string
	id       string
}

func (m *MemoryStore) AddCompetency(tenantID string, c Competency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.competency[competencyKey{tenantID, c.ID}] = c
}

func (m *MemoryStore) AddPerson(p Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people[p.ID] = p
}

// Put stores an assessment as-is, bypassing the lifecycle. Seeding only.
func (m *MemoryStore) Put(a Assessment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.ID] = a
}

func (m *MemoryStore) Get(ctx context.Context, tenantID, assessmentID string) (Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok || a.TenantID != tenantID {
		return Assessment{}, ErrNotFound
	}
	return copyAssessment(a), nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, tenantID, assessmentID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok || a.TenantID != tenantID {
		return Snapshot{}, ErrNotFound
	}
	return m.snapshot(a), nil
}

func (m *MemoryStore) Create(ctx context.Context, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.ID] = copyAssessment(a)
	return nil
}

func (m *MemoryStore) CompareAndSetStatus(ctx context.Context, tenantID, assessmentID string, expected, next Status, change Change) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok || a.TenantID != tenantID {
		return false, ErrNotFound
	}
	if a.Status != expected {
		return false, nil
	}
	a.Status = next
	if change.Submission != nil {
		rating := *change.Submission.Rating
		a.Rating = &rating
		a.Comments = change.Submission.Comments
		a.DevelopmentNotes = change.Submission.DevelopmentNotes
	}
	if change.RejectionReason != "" {
		a.LastRejectionReason = change.RejectionReason
	}
	a.UpdatedAt = change.History.At
	m.assessments[assessmentID] = a
	m.history[assessmentID] = append(m.history[assessmentID], change.History)
	return true, nil
}

func (m *MemoryStore) ListOpenByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error) {
	return m.list(tenantID, cycleID, true), nil
}

func (m *MemoryStore) ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error) {
	return m.list(tenantID, cycleID, false), nil
}

func (m *MemoryStore) History(ctx context.Context, tenantID, assessmentID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[assessmentID]
	if !ok || a.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return append([]HistoryEntry(nil), m.history[assessmentID]...), nil
}

func (m *MemoryStore) Competency(ctx context.Context, tenantID, competencyID string) (Competency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competency[competencyKey{tenantID, competencyID}]
	if !ok {
		return Competency{}, ErrCompetencyNotFound
	}
	return c, nil
}

func (m *MemoryStore) list(tenantID, cycleID string, openOnly bool) []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Snapshot
	for _, a := range m.assessments {
		if a.TenantID != tenantID || a.CycleID == "" || a.CycleID != cycleID {
			continue
		}
		if openOnly && !a.Status.Open() {
			continue
		}
		out = append(out, m.snapshot(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) snapshot(a Assessment) Snapshot {
	c := m.competency[competencyKey{a.TenantID, a.CompetencyID}]
	employee := m.people[a.EmployeeID]
	assessor := m.people[a.AssessorID]
	snap := Snapshot{
		ID:               a.ID,
		TenantID:         a.TenantID,
		EmployeeID:       a.EmployeeID,
		EmployeeName:     employee.Name,
		AssessorID:       a.AssessorID,
		AssessorName:     assessor.Name,
		ManagerID:        assessor.ManagerID,
		CompetencyID:     a.CompetencyID,
		CompetencyName:   c.Name,
		CompetencyWeight: c.Weight,
		CycleID:          a.CycleID,
		Type:             a.Type,
		Status:           a.Status,
	}
	if a.Rating != nil {
		rating := *a.Rating
		snap.Rating = &rating
	}
	return snap
}

func copyAssessment(a Assessment) Assessment {
	if a.Rating != nil {
		rating := *a.Rating
		a.Rating = &rating
	}
	return a
}
