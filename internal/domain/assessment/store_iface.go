package assessment

import "context"

type StoreAPI interface {
	Get(ctx context.Context, tenantID, assessmentID string) (Assessment, error)
	Snapshot(ctx context.Context, tenantID, assessmentID string) (Snapshot, error)
	Create(ctx context.Context, a Assessment) error
	// CompareAndSetStatus writes next and the change only if the stored
	// status still equals expected. It reports whether the swap happened.
	CompareAndSetStatus(ctx context.Context, tenantID, assessmentID string, expected, next Status, change Change) (bool, error)
	ListOpenByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error)
	ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error)
	History(ctx context.Context, tenantID, assessmentID string) ([]HistoryEntry, error)
	Competency(ctx context.Context, tenantID, competencyID string) (Competency, error)
}

// CycleScope answers whether a cycle accepts an assessment type.
type CycleScope interface {
	AllowsType(ctx context.Context, tenantID, cycleID string, t Type) (bool, error)
}
