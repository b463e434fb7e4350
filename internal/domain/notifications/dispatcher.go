package notifications

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transport delivers one intent. A nil error is the acknowledgement.
type Transport interface {
	Send(ctx context.Context, intent Intent) error
}

type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

// Recorder observes dispatch outcomes; metrics.Collector implements it.
type Recorder interface {
	RecordDispatch(kind string, outcome string)
}

type DispatcherConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	SendTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		SendTimeout: 10 * time.Second,
	}
}

// Dispatcher applies the idempotency ledger and the retry policy around a
// transport. Dispatches for the same subject are serialized; different
// subjects never wait on each other.
type Dispatcher struct {
	transport Transport
	ledger    Ledger
	failures  FailureLog
	recorder  Recorder
	cfg       DispatcherConfig
	clock     func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	locks     subjectLocks
	logger    *slog.Logger
}

func NewDispatcher(transport Transport, ledger Ledger, failures FailureLog, recorder Recorder, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		transport: transport,
		ledger:    ledger,
		failures:  failures,
		recorder:  recorder,
		cfg:       cfg,
		clock:     time.Now,
		sleep:     sleepContext,
		logger:    slog.Default().With("component", "notifications.dispatcher"),
	}
}

// WithoutBackoff makes retries immediate. Tests only.
func (d *Dispatcher) WithoutBackoff() *Dispatcher {
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) (Outcome, error) {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	unlock := d.locks.lock(intent.subject())
	defer unlock()

	if intent.Key != nil {
		for _, key := range intent.SuppressedBy {
			seen, err := d.ledger.HasSent(ctx, intent.TenantID, key)
			if err != nil {
				return d.finish(intent, OutcomeFailed), fmt.Errorf("checking ledger: %w", err)
			}
			if seen {
				return d.finish(intent, OutcomeSuppressed), nil
			}
		}
		seen, err := d.ledger.HasSent(ctx, intent.TenantID, *intent.Key)
		if err != nil {
			return d.finish(intent, OutcomeFailed), fmt.Errorf("checking ledger: %w", err)
		}
		if seen {
			return d.finish(intent, OutcomeDuplicate), nil
		}
	}

	if err := d.deliver(ctx, intent); err != nil {
		return d.finish(intent, OutcomeFailed), err
	}

	if intent.Key != nil {
		for _, key := range append([]Key{*intent.Key}, intent.AlsoMarks...) {
			if err := d.ledger.MarkSent(ctx, intent.TenantID, key, intent.ID); err != nil {
				// Delivered but unrecorded; the next tick may resend.
				d.logger.Error("ledger mark failed", "intentId", intent.ID, "key", key.String(), "err", err)
				return d.finish(intent, OutcomeSent), fmt.Errorf("marking ledger: %w", err)
			}
		}
	}
	return d.finish(intent, OutcomeSent), nil
}

func (d *Dispatcher) deliver(ctx context.Context, intent Intent) error {
	var lastErr error
	attempts := 0
	for attempts < d.cfg.MaxAttempts {
		if attempts > 0 {
			if err := d.sleep(ctx, d.backoff(intent.ID, attempts)); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
		attempts++
		lastErr = d.send(ctx, intent)
		if lastErr == nil {
			return nil
		}
		d.logger.Warn("notification send failed", "intentId", intent.ID, "kind", intent.Kind, "attempt", attempts, "err", lastErr)
		if !transient(lastErr) || ctx.Err() != nil {
			break
		}
	}

	failure := Failure{
		TenantID:  intent.TenantID,
		IntentID:  intent.ID,
		Kind:      intent.Kind,
		Key:       intent.Key,
		Attempts:  attempts,
		LastError: lastErr.Error(),
		At:        d.clock(),
	}
	if d.failures != nil {
		if err := d.failures.RecordFailure(context.WithoutCancel(ctx), failure); err != nil {
			d.logger.Error("recording dispatch failure", "intentId", intent.ID, "err", err)
		}
	}
	return &TransportError{IntentID: intent.ID, Kind: intent.Kind, Attempts: attempts, Transient: transient(lastErr), Err: lastErr}
}

func (d *Dispatcher) send(ctx context.Context, intent Intent) error {
	if d.cfg.SendTimeout <= 0 {
		return d.transport.Send(ctx, intent)
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return d.transport.Send(sendCtx, intent)
}

// backoff doubles per attempt up to MaxBackoff and adds a jitter derived
// from the intent id, so a replay waits exactly as long.
func (d *Dispatcher) backoff(intentID string, attempt int) time.Duration {
	if d.cfg.BaseBackoff <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	delay := d.cfg.BaseBackoff << shift
	if d.cfg.MaxBackoff > 0 && delay > d.cfg.MaxBackoff {
		delay = d.cfg.MaxBackoff
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", intentID, attempt)))
	jitter := time.Duration(binary.BigEndian.Uint64(sum[:8]) % uint64(d.cfg.BaseBackoff))
	return delay + jitter
}

// subjectLocks hands out one mutex per subject and forgets it once no
// dispatch holds or waits for it.
type subjectLocks struct {
	mu   sync.Mutex
	held map[string]*subjectLock
}

type subjectLock struct {
	sync.Mutex
	refs int
}

func (l *subjectLocks) lock(subject string) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]*subjectLock)
	}
	entry, ok := l.held[subject]
	if !ok {
		entry = &subjectLock{}
		l.held[subject] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, subject)
		}
		l.mu.Unlock()
	}
}

func (l *subjectLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (d *Dispatcher) finish(intent Intent, outcome Outcome) Outcome {
	if d.recorder != nil {
		d.recorder.RecordDispatch(string(intent.Kind), string(outcome))
	}
	return outcome
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
