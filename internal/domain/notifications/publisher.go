package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
)

// CycleLookup loads the cycle an assessment belongs to.
type CycleLookup interface {
	Get(ctx context.Context, tenantID, cycleID string) (cycle.Cycle, error)
}

// TransitionPublisher turns lifecycle events into dispatched notices. It
// implements assessment.Publisher. By default delivery happens inside
// Publish; WithAsync moves it off the caller's goroutine.
type TransitionPublisher struct {
	policy     Policy
	escalation *escalation.Policy
	cycles     CycleLookup
	dispatcher *Dispatcher
	logger     *slog.Logger

	async    bool
	budget   time.Duration
	inflight sync.WaitGroup
}

func NewTransitionPublisher(policy Policy, esc *escalation.Policy, cycles CycleLookup, dispatcher *Dispatcher) *TransitionPublisher {
	return &TransitionPublisher{
		policy:     policy,
		escalation: esc,
		cycles:     cycles,
		dispatcher: dispatcher,
		logger:     slog.Default().With("component", "notifications.publisher"),
	}
}

// WithAsync makes Publish return immediately. Delivery continues detached
// from the caller's cancellation, bounded by budget when positive.
func (p *TransitionPublisher) WithAsync(budget time.Duration) *TransitionPublisher {
	p.async = true
	p.budget = budget
	return p
}

// Wait blocks until background deliveries finish.
func (p *TransitionPublisher) Wait() {
	p.inflight.Wait()
}

func (p *TransitionPublisher) Publish(ctx context.Context, event assessment.Event) {
	if !p.async {
		p.publish(ctx, event)
		return
	}
	ctx = context.WithoutCancel(ctx)
	cancel := func() {}
	if p.budget > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.budget)
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		p.publish(ctx, event)
	}()
}

func (p *TransitionPublisher) publish(ctx context.Context, event assessment.Event) {
	var c *cycle.Cycle
	if event.Snapshot.Dated() && p.cycles != nil {
		loaded, err := p.cycles.Get(ctx, event.Snapshot.TenantID, event.Snapshot.CycleID)
		if err != nil {
			p.logger.Warn("cycle lookup for notification failed", "cycleId", event.Snapshot.CycleID, "err", err)
		} else {
			c = &loaded
		}
	}
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	eval := p.escalation.Evaluate(event.Snapshot, c, at)

	trigger := Trigger{Event: event.Kind, Reason: event.Reason}
	for _, intent := range p.policy.Decide(trigger, event.Snapshot, eval) {
		if _, err := p.dispatcher.Dispatch(ctx, intent); err != nil {
			p.logger.Warn("transition notification failed", "assessmentId", event.Snapshot.ID, "kind", intent.Kind, "err", err)
		}
	}
}
