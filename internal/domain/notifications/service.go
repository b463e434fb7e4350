package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Service is the inbox transport: each intent becomes an inbox row per
// resolved recipient plus a best-effort email.
type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
	// Limiter throttles outgoing mail. Nil means unthrottled.
	Limiter *rate.Limiter
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

func (s *Service) WithRateLimit(perSecond float64) *Service {
	if perSecond > 0 {
		s.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return s
}

// Send implements Transport. Inbox writes are the acknowledgement; mail
// problems are logged only so a retry never duplicates inbox rows.
func (s *Service) Send(ctx context.Context, intent Intent) error {
	userIDs, err := s.store.RecipientUserIDs(ctx, intent.TenantID, intent.Role, intent.RecipientID)
	if err != nil {
		return &TransportError{IntentID: intent.ID, Kind: intent.Kind, Transient: true, Err: fmt.Errorf("resolving recipients: %w", err)}
	}
	if len(userIDs) == 0 {
		return Permanent(fmt.Errorf("no user for %s recipient %q", intent.Role, intent.RecipientID))
	}

	title, body := Render(intent)
	for _, userID := range userIDs {
		if err := s.Create(ctx, intent.TenantID, userID, intent.ID, string(intent.Kind), title, body); err != nil {
			return &TransportError{IntentID: intent.ID, Kind: intent.Kind, Transient: true, Err: err}
		}
	}
	return nil
}

// Create stores one inbox row and mails it if the tenant enabled email.
// The intent id makes the insert idempotent per recipient.
func (s *Service) Create(ctx context.Context, tenantID, userID, intentID, ntype, title, body string) error {
	created, err := s.store.CreateNotification(ctx, tenantID, userID, intentID, ntype, title, body)
	if err != nil {
		return err
	}
	if !created || s.Mailer == nil {
		return nil
	}

	enabled, from := s.getEmailSettings(ctx, tenantID)
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}

	email, err := s.store.UserEmail(ctx, tenantID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			slog.Warn("notification email throttled", "userId", userID, "err", err)
			return nil
		}
	}
	if err := s.Mailer.Send(ctx, from, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, tenantID, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, userID string) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, tenantID, userID, notificationID)
}

func (s *Service) getEmailSettings(ctx context.Context, tenantID string) (bool, string) {
	enabled, from, err := s.store.EmailSettings(ctx, tenantID)
	if err != nil {
		return false, ""
	}
	return enabled, from
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (bool, string, error) {
	return s.store.EmailSettings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, tenantID, enabled, from)
}
