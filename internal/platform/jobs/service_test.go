package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/domain/reminders"
)

type finishedRun struct {
	TenantID string
	JobType  string
	Status   string
	Details  []byte
}

type fakeRuns struct {
	mu       sync.Mutex
	tenants  []string
	started  map[string]finishedRun
	finished []finishedRun
}

func newFakeRuns(tenants ...string) *fakeRuns {
	return &fakeRuns{tenants: tenants, started: map[string]finishedRun{}}
}

func (f *fakeRuns) StartRun(_ context.Context, tenantID, jobType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("run-%d", len(f.started)+1)
	f.started[id] = finishedRun{TenantID: tenantID, JobType: jobType, Status: StatusRunning}
	return id, nil
}

func (f *fakeRuns) FinishRun(_ context.Context, runID, status string, details []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.started[runID]
	run.Status = status
	run.Details = details
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeRuns) ListTenants(context.Context) ([]string, error) {
	return f.tenants, nil
}

func (f *fakeRuns) Finished() []finishedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finishedRun(nil), f.finished...)
}

type fakeTicker struct {
	mu    sync.Mutex
	calls []string
	at    []time.Time
	err   error
}

func (f *fakeTicker) Tick(_ context.Context, tenantID string, now time.Time) (reminders.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tenantID)
	f.at = append(f.at, now)
	return reminders.Report{TenantID: tenantID, Evaluated: 3, Outcomes: map[string]int{"sent": 2}}, f.err
}

func (f *fakeTicker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestRunRemindersRecordsCompletedRun(t *testing.T) {
	runs := newFakeRuns()
	ticker := &fakeTicker{}
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	report, err := New(runs, ticker, 0).RunReminders(context.Background(), "t1", at)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, []time.Time{at}, ticker.at)

	finished := runs.Finished()
	require.Len(t, finished, 1)
	assert.Equal(t, StatusCompleted, finished[0].Status)
	assert.Equal(t, JobReminderTick, finished[0].JobType)

	var details reminders.Report
	require.NoError(t, json.Unmarshal(finished[0].Details, &details))
	assert.Equal(t, 2, details.Outcomes["sent"])
}

func TestRunRemindersRecordsFailure(t *testing.T) {
	runs := newFakeRuns()
	ticker := &fakeTicker{err: errors.New("cycles unavailable")}

	_, err := New(runs, ticker, 0).RunReminders(context.Background(), "t1", time.Time{})
	require.Error(t, err)

	finished := runs.Finished()
	require.Len(t, finished, 1)
	assert.Equal(t, StatusFailed, finished[0].Status)
}

func TestRunRemindersDefaultsToClock(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ticker := &fakeTicker{}

	_, err := New(newFakeRuns(), ticker, 0).WithClock(func() time.Time { return fixed }).RunReminders(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{fixed}, ticker.at)
}

func TestScheduledPassCoversEveryTenant(t *testing.T) {
	runs := newFakeRuns("t1", "t2", "t3")
	ticker := &fakeTicker{}
	svc := New(runs, ticker, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	assert.Equal(t, 3, svc.enqueueReminders(ctx))
	require.Eventually(t, func() bool { return len(runs.Finished()) == 3 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, ticker.Calls())
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc := New(newFakeRuns(), &fakeTicker{}, 0)
	noop := func(context.Context) (any, error) { return nil, nil }
	for i := 0; i < cap(svc.queue); i++ {
		require.True(t, svc.Enqueue(JobReminderTick, "t1", noop))
	}
	assert.False(t, svc.Enqueue(JobReminderTick, "t1", noop))
}
