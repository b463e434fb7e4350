package notifications

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// hrRoleName is the roles.name that receives HR-addressed notices.
const hrRoleName = "HR"

// Store persists inbox rows, dispatch outcomes and mail settings in Postgres.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, tenantID, userID, intentID, ntype, title, body string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (tenant_id, user_id, intent_id, type, title, body)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (intent_id, user_id) DO NOTHING
  `, tenantID, userID, intentID, ntype, title, body)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RecipientUserIDs(ctx context.Context, tenantID string, role Role, recipientID string) ([]string, error) {
	var query string
	var arg string
	if role == RoleHR {
		query = `
    SELECT u.id FROM users u
    JOIN roles r ON r.id = u.role_id
    WHERE u.tenant_id = $1 AND r.name = $2
    ORDER BY u.id`
		arg = hrRoleName
	} else {
		query = `
    SELECT user_id FROM employees
    WHERE tenant_id = $1 AND id = $2 AND user_id IS NOT NULL`
		arg = recipientID
	}
	rows, err := s.DB.Query(ctx, query, tenantID, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UserEmail(ctx context.Context, tenantID, userID string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE tenant_id = $1 AND id = $2", tenantID, userID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *Store) ListNotifications(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, type, title, body, read_at, created_at
    FROM notifications
    WHERE tenant_id = $1 AND user_id = $2
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, tenantID, userID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND id = $3
  `, tenantID, userID, notificationID)
	return err
}

func (s *Store) EmailSettings(ctx context.Context, tenantID string) (bool, string, error) {
	var enabled bool
	var from string
	if err := s.DB.QueryRow(ctx, `
    SELECT email_notifications_enabled, COALESCE(email_from, '')
    FROM tenant_settings
    WHERE tenant_id = $1
  `, tenantID).Scan(&enabled, &from); err != nil {
		return false, "", err
	}
	return enabled, from, nil
}

func (s *Store) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, email_notifications_enabled, email_from)
    VALUES ($1,$2,$3)
    ON CONFLICT (tenant_id) DO UPDATE
      SET email_notifications_enabled = EXCLUDED.email_notifications_enabled,
          email_from = EXCLUDED.email_from,
          updated_at = now()
  `, tenantID, enabled, nullIfEmpty(from))
	return err
}

// HasSent and MarkSent make Store the Postgres-backed Ledger.
func (s *Store) HasSent(ctx context.Context, tenantID string, key Key) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM notification_ledger
      WHERE tenant_id = $1 AND subject = $2 AND day = $3 AND tier = $4
    )
  `, tenantID, key.Subject, key.Day, key.Tier).Scan(&exists)
	return exists, err
}

func (s *Store) MarkSent(ctx context.Context, tenantID string, key Key, intentID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notification_ledger (tenant_id, subject, day, tier, intent_id)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (tenant_id, subject, day, tier) DO NOTHING
  `, tenantID, key.Subject, key.Day, key.Tier, intentID)
	return err
}

func (s *Store) RecordFailure(ctx context.Context, f Failure) error {
	var subject, day, tier any
	if f.Key != nil {
		subject, day, tier = f.Key.Subject, f.Key.Day, f.Key.Tier
	}
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO dispatch_failures (tenant_id, intent_id, kind, subject, day, tier, attempts, last_error, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, f.TenantID, f.IntentID, f.Kind, subject, day, tier, f.Attempts, f.LastError, at)
	return err
}

func (s *Store) ListFailures(ctx context.Context, tenantID string, limit, offset int) ([]Failure, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT intent_id, kind, subject, day, tier, attempts, last_error, created_at
    FROM dispatch_failures
    WHERE tenant_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Failure{}
	for rows.Next() {
		f := Failure{TenantID: tenantID}
		var subject, day, tier *string
		if err := rows.Scan(&f.IntentID, &f.Kind, &subject, &day, &tier, &f.Attempts, &f.LastError, &f.At); err != nil {
			return nil, err
		}
		if subject != nil && day != nil && tier != nil {
			f.Key = &Key{Subject: *subject, Day: *day, Tier: *tier}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
