package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"competency/internal/domain/assessment"
	"competency/internal/domain/calendar"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const cycleSelect = `
    SELECT id, tenant_id, name, COALESCE(description, ''), start_date, end_date, assessment_types
    FROM assessment_cycles
`

func (s *Store) Get(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	c, err := scanCycle(s.DB.QueryRow(ctx, cycleSelect+" WHERE tenant_id = $1 AND id = $2", tenantID, cycleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrNotFound
	}
	if err != nil {
		return Cycle{}, fmt.Errorf("loading cycle: %w", err)
	}
	return c, nil
}

func (s *Store) List(ctx context.Context, tenantID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, cycleSelect+" WHERE tenant_id = $1 ORDER BY end_date, id", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AllowsType(ctx context.Context, tenantID, cycleID string, t assessment.Type) (bool, error) {
	c, err := s.Get(ctx, tenantID, cycleID)
	if errors.Is(err, ErrNotFound) {
		return false, unknownCycle
	}
	if err != nil {
		return false, err
	}
	return c.Covers(t), nil
}

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	var start, end time.Time
	var types []string
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &start, &end, &types); err != nil {
		return Cycle{}, err
	}
	c.StartDate = calendar.DayOf(start, time.UTC)
	c.EndDate = calendar.DayOf(end, time.UTC)
	for _, t := range types {
		c.Types = append(c.Types, assessment.Type(t))
	}
	return c, nil
}
