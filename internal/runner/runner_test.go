package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/service"

	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	records []credentials.Record
	err     error
}

func (l fakeLister) ListAll(context.Context) ([]credentials.Record, error) {
	return l.records, l.err
}

type outcome struct {
	result service.SourceResult
	err    error
	panics bool
}

type fakeSyncer struct {
	mu       sync.Mutex
	outcomes map[string]outcome
	calls    []string
	// sleep makes every call take at least this long.
	sleep  time.Duration
	starts []time.Time
	ends   []time.Time
}

func (s *fakeSyncer) SyncAs(_ context.Context, userID, source string) (service.SourceResult, error) {
	key := userID + "/" + source
	s.mu.Lock()
	s.calls = append(s.calls, key)
	s.starts = append(s.starts, time.Now())
	o, ok := s.outcomes[key]
	s.mu.Unlock()

	if s.sleep > 0 {
		time.Sleep(s.sleep)
	}
	s.mu.Lock()
	s.ends = append(s.ends, time.Now())
	s.mu.Unlock()

	if !ok {
		return service.SourceResult{Source: source, Success: true, GradesCount: 1}, nil
	}
	if o.panics {
		panic("unexpected markup")
	}
	return o.result, o.err
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *stepClock {
	return &stepClock{now: time.Date(2024, time.October, 14, 6, 0, 0, 0, time.UTC)}
}

type recordingNotifier struct {
	reports []Report
}

func (n *recordingNotifier) Notify(_ context.Context, report Report) error {
	n.reports = append(n.reports, report)
	return nil
}

func records(pairs ...string) []credentials.Record {
	out := make([]credentials.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, credentials.Record{UserID: pairs[i], Source: pairs[i+1]})
	}
	return out
}

func networkFailure(source string) outcome {
	return outcome{result: service.SourceResult{
		Source: source,
		Reason: service.ReasonNetwork,
		Error:  "could not reach " + source,
	}}
}

func TestRunIsolatesFailures(t *testing.T) {
	syncer := &fakeSyncer{outcomes: map[string]outcome{
		"user-2/tamo": {err: errors.New("dial tcp: connection refused")},
	}}
	notifier := &recordingNotifier{}
	rec := telemetry.NewRecorder()
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-2", "tamo", "user-3", "manodienynas")},
		syncer, rec, newClock(),
		Options{Delay: time.Millisecond, Notifier: notifier},
	)

	report := runner.Run(context.Background())
	require.Equal(t, 2, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Zero(t, report.Skipped)
	require.Len(t, report.Results, 3)
	require.False(t, report.Results[1].Success)
	require.Equal(t, service.ReasonInternal, report.Results[1].Reason)
	require.Contains(t, report.Results[1].Error, "connection refused")
	require.True(t, report.Results[2].Success)

	require.Len(t, notifier.reports, 1)
	require.Equal(t, report.RunID, notifier.reports[0].RunID)
	require.NotEmpty(t, rec.Find("count", "runner.succeeded"))
}

func TestRunRecoversPanics(t *testing.T) {
	syncer := &fakeSyncer{outcomes: map[string]outcome{
		"user-1/tamo": {panics: true},
	}}
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-1", "manodienynas")},
		syncer, telemetry.NewRecorder(), newClock(),
		Options{Delay: time.Millisecond},
	)

	report := runner.Run(context.Background())
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Contains(t, report.Results[0].Error, "unexpected markup")
}

func TestRunEnforcesDelay(t *testing.T) {
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-2", "tamo", "user-3", "tamo")},
		&fakeSyncer{}, telemetry.NewRecorder(), newClock(),
		Options{Delay: 30 * time.Millisecond},
	)

	start := time.Now()
	report := runner.Run(context.Background())
	require.Equal(t, 3, report.Succeeded)
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRunDelayFollowsSlowPairs(t *testing.T) {
	syncer := &fakeSyncer{sleep: 50 * time.Millisecond}
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-2", "tamo", "user-3", "tamo")},
		syncer, telemetry.NewRecorder(), newClock(),
		Options{Delay: 30 * time.Millisecond},
	)

	report := runner.Run(context.Background())
	require.Equal(t, 3, report.Succeeded)
	require.Len(t, syncer.starts, 3)
	require.Len(t, syncer.ends, 3)
	for i := 1; i < len(syncer.starts); i++ {
		gap := syncer.starts[i].Sub(syncer.ends[i-1])
		require.GreaterOrEqual(t, gap, 30*time.Millisecond, "gap before pair %d", i)
	}
}

func TestRunCooldown(t *testing.T) {
	syncer := &fakeSyncer{outcomes: map[string]outcome{
		"user-1/tamo": networkFailure("tamo"),
		"user-2/tamo": networkFailure("tamo"),
		"user-3/tamo": networkFailure("tamo"),
	}}
	clock := newClock()
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-2", "tamo", "user-3", "tamo", "user-3", "manodienynas")},
		syncer, telemetry.NewRecorder(), clock,
		Options{Delay: time.Millisecond, CooldownThreshold: 2, Cooldown: 30 * time.Minute},
	)

	report := runner.Run(context.Background())
	require.Equal(t, 2, report.Failed)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, ReasonCooldown, report.Results[2].Reason)
	require.Equal(t, []string{"user-1/tamo", "user-2/tamo", "user-3/manodienynas"}, syncer.calls)

	// still cooling down
	clock.Advance(10 * time.Minute)
	report = runner.Run(context.Background())
	require.Equal(t, 3, report.Skipped)

	clock.Advance(21 * time.Minute)
	report = runner.Run(context.Background())
	require.Equal(t, 2, report.Failed)
	require.Equal(t, 1, report.Skipped)
}

func TestRunListFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := NewRunner(
		fakeLister{err: errors.New("database is locked")},
		&fakeSyncer{}, telemetry.NewRecorder(), newClock(),
		Options{Notifier: notifier},
	)

	report := runner.Run(context.Background())
	require.Equal(t, "database is locked", report.Error)
	require.NotNil(t, report.Results)
	require.Empty(t, report.Results)
	require.Len(t, notifier.reports, 1)
}

func TestRunCancelled(t *testing.T) {
	syncer := &fakeSyncer{}
	runner := NewRunner(
		fakeLister{records: records("user-1", "tamo", "user-2", "tamo")},
		syncer, telemetry.NewRecorder(), newClock(),
		Options{Delay: time.Millisecond},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := runner.Run(ctx)
	require.Equal(t, 2, report.Skipped)
	require.Equal(t, ReasonCancelled, report.Results[0].Reason)
	require.Empty(t, syncer.calls)
}

func TestGroupByUser(t *testing.T) {
	grouped := groupByUser(records(
		"user-2", "tamo",
		"user-1", "tamo",
		"user-2", "manodienynas",
	))
	require.Equal(t, records(
		"user-2", "tamo",
		"user-2", "manodienynas",
		"user-1", "tamo",
	), grouped)
}
