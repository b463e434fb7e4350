package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/domain/assessment"
	"competency/internal/domain/escalation"
)

func newPublisherFixture(t *testing.T, transport Transport, failures *MemoryFailureLog) *TransitionPublisher {
	t.Helper()
	esc, err := escalation.NewPolicy(escalation.Config{ManagerAfterDays: 3, HRAfterDays: 10, Location: time.UTC})
	require.NoError(t, err)
	d := NewDispatcher(transport, NewMemoryLedger(), failures, nil, DispatcherConfig{MaxAttempts: 1})
	return NewTransitionPublisher(NewPolicy(7), esc, nil, d)
}

func approvedEvent() assessment.Event {
	snap := openSnap(assessment.StatusApproved)
	snap.CycleID = ""
	return assessment.Event{Kind: assessment.EventApproved, Snapshot: snap, ActorID: "mgr-1", At: time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC)}
}

func TestPublishSyncDeliversBeforeReturning(t *testing.T) {
	transport := &RecordingTransport{}
	p := newPublisherFixture(t, transport, &MemoryFailureLog{})

	p.Publish(context.Background(), approvedEvent())
	require.Len(t, transport.Sent(), 1)
	assert.Equal(t, KindApproved, transport.Sent()[0].Kind)
}

func TestPublishAsyncDoesNotWaitForTransport(t *testing.T) {
	transport := &gatedTransport{subject: "a-1", entered: make(chan struct{}), release: make(chan struct{})}
	p := newPublisherFixture(t, transport, &MemoryFailureLog{}).WithAsync(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		p.Publish(ctx, approvedEvent())
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on the transport")
	}

	// The request finishing must not cancel delivery.
	cancel()
	<-transport.entered
	close(transport.release)
	p.Wait()

	require.Len(t, transport.Sent(), 1)
	assert.Equal(t, KindApproved, transport.Sent()[0].Kind)
}

func TestPublishAsyncBudgetRecordsFailure(t *testing.T) {
	transport := &gatedTransport{subject: "a-1", entered: make(chan struct{}), release: make(chan struct{})}
	failures := &MemoryFailureLog{}
	p := newPublisherFixture(t, transport, failures).WithAsync(50 * time.Millisecond)

	p.Publish(context.Background(), approvedEvent())
	p.Wait()

	assert.Empty(t, transport.Sent())
	require.Len(t, failures.Failures(), 1)
	assert.Equal(t, KindApproved, failures.Failures()[0].Kind)
}
