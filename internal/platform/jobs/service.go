package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"competency/internal/domain/reminders"
)

const (
	JobReminderTick = "reminder_tick"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Ticker runs one reminder pass for a tenant.
type Ticker interface {
	Tick(ctx context.Context, tenantID string, now time.Time) (reminders.Report, error)
}

type Service struct {
	runs     RunStore
	ticker   Ticker
	interval time.Duration
	clock    func() time.Time
	queue    chan job
	logger   *slog.Logger
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

// New builds the scheduler. A zero interval disables the periodic reminder
// pass; RunNow and Enqueue still work.
func New(runs RunStore, ticker Ticker, interval time.Duration) *Service {
	return &Service{
		runs:     runs,
		ticker:   ticker,
		interval: interval,
		clock:    time.Now,
		queue:    make(chan job, 128),
		logger:   slog.Default().With("component", "jobs"),
	}
}

func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.interval > 0 && s.ticker != nil {
		go s.scheduleReminders(ctx, s.interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		s.logger.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// RunReminders performs a recorded reminder pass for one tenant at the given
// instant. The zero time means now.
func (s *Service) RunReminders(ctx context.Context, tenantID string, at time.Time) (reminders.Report, error) {
	if at.IsZero() {
		at = s.clock()
	}
	var report reminders.Report
	_, err := s.RunNow(ctx, JobReminderTick, tenantID, func(ctx context.Context) (any, error) {
		r, err := s.ticker.Tick(ctx, tenantID, at)
		report = r
		return r, err
	})
	return report, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.runs.StartRun(ctx, j.TenantID, j.Type)
	if err != nil {
		s.logger.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		s.logger.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		// The run context may already be cancelled; the outcome is still recorded.
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if updErr := s.runs.FinishRun(finishCtx, runID, status, detailsJSON); updErr != nil {
			s.logger.Warn("job run update failed", "runId", runID, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleReminders(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueReminders(ctx)
		}
	}
}

func (s *Service) enqueueReminders(ctx context.Context) int {
	tenants, err := s.runs.ListTenants(ctx)
	if err != nil {
		s.logger.Warn("reminder scheduler tenant lookup failed", "err", err)
		return 0
	}
	at := s.clock()
	queued := 0
	for _, tenantID := range tenants {
		tenant := tenantID
		if s.Enqueue(JobReminderTick, tenant, func(ctx context.Context) (any, error) {
			return s.ticker.Tick(ctx, tenant, at)
		}) {
			queued++
		}
	}
	return queued
}
