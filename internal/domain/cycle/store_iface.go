package cycle

import (
	"context"

	"competency/internal/domain/assessment"
)

type StoreAPI interface {
	Get(ctx context.Context, tenantID, cycleID string) (Cycle, error)
	List(ctx context.Context, tenantID string) ([]Cycle, error)
	AllowsType(ctx context.Context, tenantID, cycleID string, t assessment.Type) (bool, error)
}
