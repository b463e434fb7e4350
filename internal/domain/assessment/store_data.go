package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const snapshotSelect = `
    SELECT ca.id, ca.tenant_id, ca.employee_id,
           COALESCE(e.first_name || ' ' || e.last_name, ''),
           ca.assessor_id,
           COALESCE(a.first_name || ' ' || a.last_name, ''),
           COALESCE(a.manager_id::text, ''),
           ca.competency_id, c.name, c.weight,
           COALESCE(ca.cycle_id::text, ''), ca.assessment_type, ca.status, ca.rating
    FROM competency_assessments ca
    JOIN competencies c ON c.id = ca.competency_id
    LEFT JOIN employees e ON e.id = ca.employee_id
    LEFT JOIN employees a ON a.id = ca.assessor_id
`

func (s *Store) Get(ctx context.Context, tenantID, assessmentID string) (Assessment, error) {
	var a Assessment
	var rating *int16
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, employee_id, assessor_id, competency_id, COALESCE(cycle_id::text, ''),
           assessment_type, rating, COALESCE(comments, ''), COALESCE(development_notes, ''),
           status, COALESCE(last_rejection_reason, ''), created_at, updated_at
    FROM competency_assessments
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, assessmentID).Scan(&a.ID, &a.TenantID, &a.EmployeeID, &a.AssessorID, &a.CompetencyID, &a.CycleID,
		&a.Type, &rating, &a.Comments, &a.DevelopmentNotes, &a.Status, &a.LastRejectionReason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assessment{}, ErrNotFound
	}
	if err != nil {
		return Assessment{}, fmt.Errorf("loading assessment: %w", err)
	}
	a.Rating = widen(rating)
	return a, nil
}

func (s *Store) Snapshot(ctx context.Context, tenantID, assessmentID string) (Snapshot, error) {
	row := s.DB.QueryRow(ctx, snapshotSelect+" WHERE ca.tenant_id = $1 AND ca.id = $2", tenantID, assessmentID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading assessment snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) Create(ctx context.Context, a Assessment) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO competency_assessments (id, tenant_id, employee_id, assessor_id, competency_id, cycle_id, assessment_type, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, a.ID, a.TenantID, a.EmployeeID, a.AssessorID, a.CompetencyID, nullIfEmpty(a.CycleID), a.Type, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting assessment: %w", err)
	}
	return nil
}

// CompareAndSetStatus guards the update with the expected status in the
// WHERE clause, so of two racing writers exactly one affects a row.
func (s *Store) CompareAndSetStatus(ctx context.Context, tenantID, assessmentID string, expected, next Status, change Change) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rating any
	var comments, notes any
	if change.Submission != nil {
		rating = *change.Submission.Rating
		comments = change.Submission.Comments
		notes = change.Submission.DevelopmentNotes
	}

	tag, err := tx.Exec(ctx, `
    UPDATE competency_assessments
    SET status = $1,
        rating = COALESCE($2, rating),
        comments = COALESCE($3, comments),
        development_notes = COALESCE($4, development_notes),
        last_rejection_reason = COALESCE(NULLIF($5, ''), last_rejection_reason),
        updated_at = $6
    WHERE tenant_id = $7 AND id = $8 AND status = $9
  `, next, rating, comments, notes, change.RejectionReason, change.History.At, tenantID, assessmentID, expected)
	if err != nil {
		return false, fmt.Errorf("updating assessment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM competency_assessments WHERE tenant_id = $1 AND id = $2)", tenantID, assessmentID).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrNotFound
		}
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO assessment_reviews (tenant_id, assessment_id, from_status, to_status, actor_id, reason, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, tenantID, assessmentID, change.History.From, change.History.To, change.History.ActorID, nullIfEmpty(change.History.Reason), change.History.At); err != nil {
		return false, fmt.Errorf("recording assessment review: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListOpenByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error) {
	return s.listSnapshots(ctx, snapshotSelect+`
    WHERE ca.tenant_id = $1 AND ca.cycle_id = $2 AND ca.status <> $3
    ORDER BY ca.id`, tenantID, cycleID, StatusApproved)
}

func (s *Store) ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Snapshot, error) {
	return s.listSnapshots(ctx, snapshotSelect+`
    WHERE ca.tenant_id = $1 AND ca.cycle_id = $2
    ORDER BY ca.id`, tenantID, cycleID)
}

func (s *Store) History(ctx context.Context, tenantID, assessmentID string) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT assessment_id, from_status, to_status, actor_id, COALESCE(reason, ''), created_at
    FROM assessment_reviews
    WHERE tenant_id = $1 AND assessment_id = $2
    ORDER BY created_at, id
  `, tenantID, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.AssessmentID, &entry.From, &entry.To, &entry.ActorID, &entry.Reason, &entry.At); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) Competency(ctx context.Context, tenantID, competencyID string) (Competency, error) {
	var c Competency
	var guidelinesJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, category, weight, guidelines_json, COALESCE(department_id::text, ''), role_specific, active
    FROM competencies
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, competencyID).Scan(&c.ID, &c.Name, &c.Category, &c.Weight, &guidelinesJSON, &c.DepartmentID, &c.RoleSpecific, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Competency{}, ErrCompetencyNotFound
	}
	if err != nil {
		return Competency{}, fmt.Errorf("loading competency: %w", err)
	}
	if len(guidelinesJSON) > 0 {
		if err := json.Unmarshal(guidelinesJSON, &c.Guidelines); err != nil {
			c.Guidelines = nil
		}
	}
	return c, nil
}

func (s *Store) listSnapshots(ctx context.Context, query string, args ...any) ([]Snapshot, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var snap Snapshot
	var rating *int16
	if err := row.Scan(&snap.ID, &snap.TenantID, &snap.EmployeeID, &snap.EmployeeName, &snap.AssessorID, &snap.AssessorName,
		&snap.ManagerID, &snap.CompetencyID, &snap.CompetencyName, &snap.CompetencyWeight, &snap.CycleID,
		&snap.Type, &snap.Status, &rating); err != nil {
		return Snapshot{}, err
	}
	snap.Rating = widen(rating)
	return snap, nil
}

func widen(v *int16) *int {
	if v == nil {
		return nil
	}
	r := int(*v)
	return &r
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
