package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/credentials"
	"gradesync-backend/internal/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gradesync.runner")

const (
	report_runner_list      = "runner.list"
	report_runner_pair      = "runner.pair"
	report_runner_notify    = "runner.notify"
	report_runner_succeeded = "runner.succeeded"
	report_runner_failed    = "runner.failed"
	report_runner_skipped   = "runner.skipped"
)

const (
	ReasonCooldown  = "cooldown"
	ReasonCancelled = "cancelled"
)

const (
	DefaultDelay             = 2 * time.Second
	DefaultCooldownThreshold = 3
	DefaultCooldown          = 30 * time.Minute
)

// Lister enumerates every saved credential.
type Lister interface {
	ListAll(ctx context.Context) ([]credentials.Record, error)
}

// Syncer syncs one (user, source) pair.
//
// note: fault injection point
type Syncer interface {
	SyncAs(ctx context.Context, userID, source string) (service.SourceResult, error)
}

// Notifier receives every finished report.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

type Options struct {
	// Delay is the pause after a pair finishes before the next one starts,
	// DefaultDelay when zero.
	Delay time.Duration
	// CooldownThreshold consecutive transport failures of a source pause
	// it for Cooldown.
	CooldownThreshold int
	Cooldown          time.Duration
	Notifier          Notifier
}

type PairResult struct {
	UserID      string        `json:"userId"`
	Source      string        `json:"source"`
	Success     bool          `json:"success"`
	Skipped     bool          `json:"skipped,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Error       string        `json:"error,omitempty"`
	GradesCount int           `json:"gradesCount"`
	Duration    time.Duration `json:"duration"`
}

// Report is the outcome of one run, it is produced even when the run could
// not enumerate any credentials.
type Report struct {
	RunID     uuid.UUID    `json:"runId"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Error     string       `json:"error,omitempty"`
	Results   []PairResult `json:"results"`
}

type Runner struct {
	lister  Lister
	syncer  Syncer
	breaker *breaker
	opts    Options
	tel     telemetry.API
	time    chrono.TimeAPI
}

func NewRunner(lister Lister, syncer Syncer, tel telemetry.API, clock chrono.TimeAPI, opts Options) *Runner {
	assert.NotNil(lister)
	assert.NotNil(syncer)
	assert.NotNil(tel)
	assert.NotNil(clock)

	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.CooldownThreshold <= 0 {
		opts.CooldownThreshold = DefaultCooldownThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	return &Runner{
		lister:  lister,
		syncer:  syncer,
		breaker: newBreaker(opts.CooldownThreshold, opts.Cooldown),
		opts:    opts,
		tel:     telemetry.NewScopedAPI("runner", tel),
		time:    clock,
	}
}

// Schedule runs the runner on every tick of spec.
func (r *Runner) Schedule(cron chrono.CronAPI, spec string) error {
	return cron.Cron(spec, func() {
		r.Run(context.Background())
	})
}

// runPair never panics and never returns an error, every failure ends up
// in the result.
func (r *Runner) runPair(ctx context.Context, rec credentials.Record) (result PairResult) {
	ctx, span := tracer.Start(ctx, "runPair", trace.WithAttributes(attribute.String("source", rec.Source)))

	result = PairResult{UserID: rec.UserID, Source: rec.Source}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.tel.ReportBroken(report_runner_pair, p, rec.UserID, rec.Source, string(debug.Stack()))
			result.Success = false
			result.Reason = service.ReasonInternal
			result.Error = fmt.Sprintf("panic: %v", p)
		}
		result.Duration = time.Since(start)
		if !result.Success {
			span.SetStatus(codes.Error, result.Reason)
		}
		span.End()
	}()

	synced, err := r.syncer.SyncAs(ctx, rec.UserID, rec.Source)
	if err != nil {
		r.tel.ReportBroken(report_runner_pair, err, rec.UserID, rec.Source)
		result.Reason = service.ReasonInternal
		result.Error = err.Error()
		return result
	}
	result.Success = synced.Success
	result.Reason = synced.Reason
	result.Error = synced.Error
	result.GradesCount = synced.GradesCount
	return result
}

// Run syncs every saved (user, source) pair one after another.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{
		RunID:   uuid.New(),
		Started: r.time.Now(),
		Results: []PairResult{},
	}

	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(attribute.String("run_id", report.RunID.String())))
	defer span.End()

	defer func() {
		r.tel.ReportCount(report_runner_succeeded, int64(report.Succeeded))
		r.tel.ReportCount(report_runner_failed, int64(report.Failed))
		r.tel.ReportCount(report_runner_skipped, int64(report.Skipped))
	}()

	records, err := r.lister.ListAll(ctx)
	if err != nil {
		r.tel.ReportBroken(report_runner_list, err)
		span.RecordError(err)
		report.Error = err.Error()
		report.Finished = r.time.Now()
		r.notify(ctx, report)
		return report
	}

	ran := false
	for _, rec := range groupByUser(records) {
		var result PairResult
		switch {
		case r.breaker.open(rec.Source, r.time.Now()):
			result = PairResult{UserID: rec.UserID, Source: rec.Source, Skipped: true, Reason: ReasonCooldown}
		case r.pause(ctx, ran) != nil:
			result = PairResult{UserID: rec.UserID, Source: rec.Source, Skipped: true, Reason: ReasonCancelled}
		default:
			result = r.runPair(ctx, rec)
			ran = true
			r.breaker.record(rec.Source, isTransport(result.Reason), r.time.Now())
		}

		switch {
		case result.Skipped:
			report.Skipped++
		case result.Success:
			report.Succeeded++
		default:
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	report.Finished = r.time.Now()
	r.tel.ReportDebug(
		"run finished",
		report.RunID.String(),
		report.Succeeded, report.Failed, report.Skipped,
	)
	r.notify(ctx, report)
	return report
}

// pause waits out Delay when a pair already ran, the delay counts from the
// end of that pair.
func (r *Runner) pause(ctx context.Context, ran bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ran {
		return nil
	}
	timer := time.NewTimer(r.opts.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) notify(ctx context.Context, report Report) {
	if r.opts.Notifier == nil {
		return
	}
	err := r.opts.Notifier.Notify(ctx, report)
	if err != nil {
		r.tel.ReportWarning(report_runner_notify, err)
	}
}

func isTransport(reason string) bool {
	return reason == service.ReasonTimeout || reason == service.ReasonNetwork
}

// groupByUser orders records so every user's sources run back to back,
// users keep the order they first appear in.
func groupByUser(records []credentials.Record) []credentials.Record {
	var order []string
	byUser := map[string][]credentials.Record{}
	for _, rec := range records {
		if _, seen := byUser[rec.UserID]; !seen {
			order = append(order, rec.UserID)
		}
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}

	out := make([]credentials.Record, 0, len(records))
	for _, user := range order {
		out = append(out, byUser[user]...)
	}
	return out
}
