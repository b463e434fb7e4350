package notifications

import (
	"context"
	"sync"
)

// RecordingTransport keeps every delivered intent in memory. FailNext makes
// the following sends fail with the given error.
type RecordingTransport struct {
	mu       sync.Mutex
	sent     []Intent
	failures []error
}

func (t *RecordingTransport) Send(ctx context.Context, intent Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.failures) > 0 {
		err := t.failures[0]
		t.failures = t.failures[1:]
		return err
	}
	t.sent = append(t.sent, intent)
	return nil
}

func (t *RecordingTransport) FailNext(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, errs...)
}

func (t *RecordingTransport) Sent() []Intent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Intent(nil), t.sent...)
}
