package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"competency/internal/domain/assessment"
	"competency/internal/domain/calendar"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
	"competency/internal/domain/notifications"
)

type Assessments interface {
	ListOpenByCycle(ctx context.Context, tenantID, cycleID string) ([]assessment.Snapshot, error)
	ListByCycle(ctx context.Context, tenantID, cycleID string) ([]assessment.Snapshot, error)
}

type Cycles interface {
	List(ctx context.Context, tenantID string) ([]cycle.Cycle, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, intent notifications.Intent) (notifications.Outcome, error)
}

// Recorder observes finished ticks; metrics.Collector implements it.
type Recorder interface {
	RecordTick(tenantID string, evaluated, sent, failed int, duration time.Duration)
}

type Config struct {
	Timeout     time.Duration
	Concurrency int
}

// Report summarizes one pass. Errors are counted per assessment and never
// abort the pass.
type Report struct {
	TenantID   string         `json:"tenantId"`
	Day        string         `json:"day"`
	Cycles     int            `json:"cycles"`
	Evaluated  int            `json:"evaluated"`
	Outcomes   map[string]int `json:"outcomes"`
	Errors     int            `json:"errors"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

func (r *Report) count(outcome notifications.Outcome) {
	r.Outcomes[string(outcome)]++
}

type Runner struct {
	assessments Assessments
	cycles      Cycles
	escalation  *escalation.Policy
	policy      notifications.Policy
	dispatcher  Dispatcher
	recorder    Recorder
	cfg         Config
	logger      *slog.Logger
}

func NewRunner(assessments Assessments, cycles Cycles, esc *escalation.Policy, policy notifications.Policy, dispatcher Dispatcher, recorder Recorder, cfg Config) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		assessments: assessments,
		cycles:      cycles,
		escalation:  esc,
		policy:      policy,
		dispatcher:  dispatcher,
		recorder:    recorder,
		cfg:         cfg,
		logger:      slog.Default().With("component", "reminders"),
	}
}

// Tick walks every open dated assessment of the tenant once. Assessments
// are evaluated in parallel; a stuck transport is bounded by the timeout.
func (r *Runner) Tick(ctx context.Context, tenantID string, now time.Time) (Report, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	report := Report{
		TenantID:  tenantID,
		Day:       r.today(now),
		Outcomes:  map[string]int{},
		StartedAt: time.Now(),
	}
	cycles, err := r.cycles.List(ctx, tenantID)
	if err != nil {
		return report, fmt.Errorf("listing cycles: %w", err)
	}
	report.Cycles = len(cycles)

	var mu sync.Mutex
	record := func(fn func(*Report)) {
		mu.Lock()
		defer mu.Unlock()
		fn(&report)
	}

	for i := range cycles {
		if ctx.Err() != nil {
			break
		}
		r.tickCycle(ctx, cycles[i], now, record)
	}

	report.FinishedAt = time.Now()
	if r.recorder != nil {
		sent := report.Outcomes[string(notifications.OutcomeSent)]
		r.recorder.RecordTick(tenantID, report.Evaluated, sent, report.Errors, report.FinishedAt.Sub(report.StartedAt))
	}
	r.logger.Info("reminder tick finished",
		"tenantId", tenantID,
		"day", report.Day,
		"cycles", report.Cycles,
		"evaluated", report.Evaluated,
		"outcomes", report.Outcomes,
		"errors", report.Errors,
	)
	return report, ctx.Err()
}

func (r *Runner) tickCycle(ctx context.Context, c cycle.Cycle, now time.Time, record func(func(*Report))) {
	if !c.Started(now, r.escalation.Location()) {
		return
	}

	all, err := r.assessments.ListByCycle(ctx, c.TenantID, c.ID)
	if err != nil {
		r.logger.Warn("listing cycle assessments failed", "cycleId", c.ID, "err", err)
		record(func(rep *Report) { rep.Errors++ })
		return
	}
	stats := cycle.Account(all)
	for _, intent := range r.policy.DecideCycle(c, stats, now, r.escalation.Location()) {
		r.dispatch(ctx, intent, record)
	}

	open, err := r.assessments.ListOpenByCycle(ctx, c.TenantID, c.ID)
	if err != nil {
		r.logger.Warn("listing open assessments failed", "cycleId", c.ID, "err", err)
		record(func(rep *Report) { rep.Errors++ })
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, snap := range open {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			eval := r.escalation.Evaluate(snap, &c, now)
			record(func(rep *Report) { rep.Evaluated++ })
			for _, intent := range r.policy.Decide(notifications.Tick, snap, eval) {
				r.dispatch(gctx, intent, record)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) dispatch(ctx context.Context, intent notifications.Intent, record func(func(*Report))) {
	outcome, err := r.dispatcher.Dispatch(ctx, intent)
	if err != nil {
		r.logger.Warn("reminder dispatch failed",
			"assessmentId", intent.Payload.AssessmentID,
			"cycleId", intent.Payload.CycleID,
			"kind", intent.Kind,
			"err", err,
		)
	}
	record(func(rep *Report) {
		rep.count(outcome)
		if err != nil {
			rep.Errors++
		}
	})
}

func (r *Runner) today(now time.Time) string {
	return calendar.DayOf(now, r.escalation.Location()).String()
}
