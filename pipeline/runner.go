// ABOUTME: Daily pipeline runner: lock, sync, aggregate, generate, split and dispatch
// ABOUTME: One sequential pass per invocation guarded by a named run lock
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/brief"
	"github.com/keenanpereira/pulse/sync"
)

// ErrLocked means another run holds the pipeline lock.
var ErrLocked = errors.New("pipeline run already in progress")

// DefaultLockName is the run lock shared by every invocation.
const DefaultLockName = "pulse-daily"

type Locker interface {
	AcquireLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, holder string) error
}

type Syncer interface {
	Run(ctx context.Context) (*sync.Result, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, asOf time.Time) (*analytics.Snapshot, error)
}

type Generator interface {
	Generate(ctx context.Context, payload *analytics.Payload) (string, bool)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, date string, report brief.Report) brief.Outcome
}

type Options struct {
	LockName  string
	LockTTL   time.Duration
	Budget    int
	DBTimeout time.Duration
	// NewHolder returns the lock holder id; defaults to a random UUID.
	NewHolder func() string
	Now       func() time.Time
	Logger    *log.Logger
}

type Runner struct {
	locker     Locker
	syncer     Syncer
	aggregator Aggregator
	detector   *analytics.Detector
	generator  Generator
	dispatcher Dispatcher
	opts       Options
	logger     *log.Logger
}

func NewRunner(locker Locker, syncer Syncer, aggregator Aggregator, detector *analytics.Detector,
	generator Generator, dispatcher Dispatcher, opts Options) *Runner {
	if opts.LockName == "" {
		opts.LockName = DefaultLockName
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.Budget <= 0 {
		opts.Budget = brief.DefaultBudget
	}
	if opts.NewHolder == nil {
		opts.NewHolder = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if detector == nil {
		detector = analytics.NewDetector(analytics.DefaultThresholds(), "₹")
	}
	return &Runner{
		locker:     locker,
		syncer:     syncer,
		aggregator: aggregator,
		detector:   detector,
		generator:  generator,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Summary describes how far a run got.
type Summary struct {
	RunID      string
	ReportDate string
	Started    time.Time
	Finished   time.Time
	Sync       *sync.Result
	Payload    *analytics.Payload
	Report     *brief.Report
	Outcome    *brief.Outcome
	Stage      brief.Stage
}

// Generated reports whether the generator produced text.
func (s *Summary) Generated() bool {
	return s.Report != nil
}

// Run executes the pipeline once for the report day containing asOf. A
// generation failure is not an error: the summary ends in StageNoReport.
func (r *Runner) Run(ctx context.Context, asOf time.Time) (*Summary, error) {
	holder := r.opts.NewHolder()
	summary := &Summary{RunID: holder, Started: r.opts.Now(), Stage: brief.StageRaw}
	logger := r.logger.With("run", holder)

	lockCtx, cancel := withTimeout(ctx, r.opts.DBTimeout)
	acquired, err := r.locker.AcquireLock(lockCtx, r.opts.LockName, holder, r.opts.LockTTL)
	cancel()
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Warn("run lock held elsewhere", "lock", r.opts.LockName)
		return nil, ErrLocked
	}
	defer func() {
		// Release even when ctx is already cancelled.
		releaseCtx, cancel := withTimeout(context.WithoutCancel(ctx), r.opts.DBTimeout)
		defer cancel()
		if err := r.locker.ReleaseLock(releaseCtx, r.opts.LockName, holder); err != nil {
			logger.Error("failed to release run lock", "err", err)
		}
	}()
	defer func() { summary.Finished = r.opts.Now() }()

	logger.Info("starting pipeline run", "as_of", asOf.Format(time.RFC3339))

	result, err := r.syncer.Run(ctx)
	summary.Sync = result
	if err != nil {
		logger.Error("sync stage failed", "err", err)
		return summary, fmt.Errorf("sync failed: %w", err)
	}

	snap, err := r.aggregator.Aggregate(ctx, asOf)
	if err != nil {
		logger.Error("aggregation failed", "err", err)
		return summary, fmt.Errorf("aggregation failed: %w", err)
	}
	summary.ReportDate = snap.ReportDate
	summary.Payload = analytics.BuildPayload(snap, r.detector)
	logger.Info("payload ready", "report_date", snap.ReportDate, "anomalies", len(summary.Payload.Anomalies))

	raw, ok := r.generator.Generate(ctx, summary.Payload)
	if !ok {
		summary.Stage = brief.StageNoReport
		logger.Error("report generator returned no text; skipping dispatch")
		return summary, nil
	}

	report := brief.Split(raw)
	report.ApplyBudget(r.opts.Budget)
	summary.Report = &report
	summary.Stage = report.Stage
	logger.Info("report split",
		"dashboard_tier", report.DashboardTier,
		"channel_tier", report.ChannelTier,
		"stage", report.Stage)

	outcome := r.dispatcher.Dispatch(ctx, snap.ReportDate, report)
	summary.Outcome = &outcome
	summary.Stage = outcome.Stage
	return summary, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
