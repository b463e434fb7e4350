package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"competency/internal/domain/calendar"
	"competency/internal/platform/auth"
	"competency/internal/platform/config"
)

// SeedResult identifies the demo records so callers can print or reuse them.
type SeedResult struct {
	TenantID   string
	HRUserID   string
	CycleID    string
	Competency string
}

type seedPerson struct {
	email     string
	role      string
	firstName string
	lastName  string
}

var seedPeople = []seedPerson{
	{email: "hr@%s", role: auth.RoleHR, firstName: "Harriet", lastName: "Reyes"},
	{email: "manager@%s", role: auth.RoleManager, firstName: "Mateo", lastName: "Lind"},
	{email: "employee@%s", role: auth.RoleEmployee, firstName: "Emma", lastName: "Okafor"},
}

// Seed creates a demo tenant with one reporting line, a competency and an
// active cycle. Running it twice leaves the existing rows in place.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (SeedResult, error) {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed tenant: %w", err)
	}

	roleIDs, err := ensureRoles(ctx, pool, tenantID)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed roles: %w", err)
	}

	domain := seedDomain(cfg.SeedTenantName)
	employeeIDs := make([]string, 0, len(seedPeople))
	userIDs := make([]string, 0, len(seedPeople))
	managerID := ""
	for _, person := range seedPeople {
		email := fmt.Sprintf(person.email, domain)
		userID, err := ensureUser(ctx, pool, tenantID, roleIDs[person.role], email)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed user %s: %w", email, err)
		}
		employeeID, err := ensureEmployee(ctx, pool, tenantID, userID, managerID, person)
		if err != nil {
			return SeedResult{}, fmt.Errorf("seed employee %s: %w", email, err)
		}
		userIDs = append(userIDs, userID)
		employeeIDs = append(employeeIDs, employeeID)
		managerID = employeeID
	}

	competencyID, err := ensureCompetency(ctx, pool, tenantID)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed competency: %w", err)
	}

	location, err := cfg.Engine.Location()
	if err != nil {
		return SeedResult{}, err
	}
	cycleID, created, err := ensureCycle(ctx, pool, tenantID, calendar.DayOf(time.Now(), location))
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed cycle: %w", err)
	}

	if created {
		employee, manager := employeeIDs[2], employeeIDs[1]
		if err := insertAssessment(ctx, pool, tenantID, employee, employee, competencyID, cycleID, "self"); err != nil {
			return SeedResult{}, fmt.Errorf("seed self assessment: %w", err)
		}
		if err := insertAssessment(ctx, pool, tenantID, employee, manager, competencyID, cycleID, "manager"); err != nil {
			return SeedResult{}, fmt.Errorf("seed manager assessment: %w", err)
		}
	}

	slog.Info("seed complete", "tenantId", tenantID, "cycleId", cycleID, "cycleCreated", created)
	return SeedResult{TenantID: tenantID, HRUserID: userIDs[0], CycleID: cycleID, Competency: competencyID}, nil
}

func seedDomain(tenantName string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(tenantName), "-"))
	if slug == "" {
		slug = "demo"
	}
	return slug + ".local"
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) (map[string]string, error) {
	roleIDs := map[string]string{}
	for _, roleName := range []string{auth.RoleHR, auth.RoleManager, auth.RoleEmployee} {
		var id string
		err := pool.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleID, email string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, role_id) VALUES ($1, $2, $3)
    ON CONFLICT (tenant_id, email) DO UPDATE SET role_id = EXCLUDED.role_id
    RETURNING id
  `, tenantID, email, roleID).Scan(&id)
	return id, err
}

func ensureEmployee(ctx context.Context, pool *pgxpool.Pool, tenantID, userID, managerID string, person seedPerson) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = pool.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, manager_id)
    VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid)
    RETURNING id
  `, tenantID, userID, person.firstName, person.lastName, managerID).Scan(&id)
	return id, err
}

func ensureCompetency(ctx context.Context, pool *pgxpool.Pool, tenantID string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `
    INSERT INTO competencies (tenant_id, name, category, weight, guidelines_json)
    VALUES ($1, 'Communication', 'core', 1.5, $2)
    ON CONFLICT (tenant_id, name) DO UPDATE SET active = true
    RETURNING id
  `, tenantID, `{"1":"Rarely shares context","3":"Keeps the team informed","5":"Sets the standard for clear communication"}`).Scan(&id)
	return id, err
}

func ensureCycle(ctx context.Context, pool *pgxpool.Pool, tenantID string, today calendar.Day) (string, bool, error) {
	const name = "Demo assessment cycle"
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM assessment_cycles WHERE tenant_id = $1 AND name = $2", tenantID, name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	err = pool.QueryRow(ctx, `
    INSERT INTO assessment_cycles (tenant_id, name, description, start_date, end_date, assessment_types)
    VALUES ($1, $2, 'Seeded for local development', $3::date, $4::date, ARRAY['self','manager','peer'])
    RETURNING id
  `, tenantID, name, today.AddDays(-7).String(), today.AddDays(14).String()).Scan(&id)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func insertAssessment(ctx context.Context, pool *pgxpool.Pool, tenantID, employeeID, assessorID, competencyID, cycleID, kind string) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO competency_assessments (id, tenant_id, employee_id, assessor_id, competency_id, cycle_id, assessment_type, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
  `, uuid.NewString(), tenantID, employeeID, assessorID, competencyID, cycleID, kind)
	return err
}
