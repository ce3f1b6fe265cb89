// ABOUTME: Sync orchestrator driving incremental fetch and upsert across modules
// ABOUTME: Appends exactly one sync log entry per authenticated run
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/crm"
	"github.com/keenanpereira/pulse/models"
)

// ErrAuthentication means the CRM credential exchange failed. Nothing was
// fetched and no log entry was written.
var ErrAuthentication = errors.New("crm authentication failed")

// Source is the CRM boundary.
type Source interface {
	Authenticate(ctx context.Context) error
	Fetch(ctx context.Context, module models.Module, since *time.Time) ([]crm.Record, error)
}

// Store is the persistence the orchestrator needs.
type Store interface {
	RecordStore
	LastSuccessfulSync(ctx context.Context) (*time.Time, error)
	InsertSyncLog(ctx context.Context, entry *models.SyncLogEntry) error
}

type Options struct {
	// ContinueOnFetchError isolates module failures instead of aborting the run.
	ContinueOnFetchError bool
	FetchTimeout         time.Duration
	DBTimeout            time.Duration
	Now                  func() time.Time
	Logger               *log.Logger
}

type Orchestrator struct {
	source Source
	store  Store
	writer *Writer
	opts   Options
	logger *log.Logger
}

// ModuleFailure records why one module did not sync.
type ModuleFailure struct {
	Module models.Module
	Err    error
}

type Result struct {
	Since    *time.Time
	SyncTime time.Time
	Status   string
	Fetched  map[models.Module]int
	Written  map[models.Module]int
	Total    int
	Failures []ModuleFailure
}

func NewOrchestrator(source Source, store Store, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Orchestrator{
		source: source,
		store:  store,
		writer: NewWriter(store, opts.Logger),
		opts:   opts,
		logger: opts.Logger,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Run performs one sync pass. On abort the returned Result is still populated
// with the progress made before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	authCtx, cancel := withTimeout(ctx, o.opts.FetchTimeout)
	err := o.source.Authenticate(authCtx)
	cancel()
	if err != nil {
		o.logger.Error("authentication failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	dbCtx, cancel := withTimeout(ctx, o.opts.DBTimeout)
	since, err := o.store.LastSuccessfulSync(dbCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}

	result := &Result{
		Since:   since,
		Fetched: make(map[models.Module]int),
		Written: make(map[models.Module]int),
	}

	for _, module := range models.SyncModules {
		if err := o.syncModule(ctx, module, since, result); err != nil {
			result.Failures = append(result.Failures, ModuleFailure{Module: module, Err: err})
			o.logger.Error("module sync failed", "module", module, "err", err)
			if !o.opts.ContinueOnFetchError {
				result.Status = models.SyncStatusFailed
				if logErr := o.appendLog(ctx, result, err.Error()); logErr != nil {
					err = errors.Join(err, logErr)
				}
				return result, err
			}
		}
	}

	result.Status = models.SyncStatusSuccess
	var message string
	if len(result.Failures) > 0 {
		result.Status = models.SyncStatusPartial
		message = failureSummary(result.Failures)
	}
	if err := o.appendLog(ctx, result, message); err != nil {
		return result, err
	}

	o.logger.Info("sync complete", "status", result.Status, "count", result.Total)
	return result, nil
}

func (o *Orchestrator) syncModule(ctx context.Context, module models.Module, since *time.Time, result *Result) error {
	fetchCtx, cancel := withTimeout(ctx, o.opts.FetchTimeout)
	records, err := o.source.Fetch(fetchCtx, module, since)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", module, err)
	}

	result.Fetched[module] = len(records)
	result.Total += len(records)
	if len(records) == 0 {
		return nil
	}

	dbCtx, cancel := withTimeout(ctx, o.opts.DBTimeout)
	written, err := o.writer.Upsert(dbCtx, module, records)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", module, err)
	}
	result.Written[module] = written
	return nil
}

// appendLog writes the run's single log entry. A success entry never goes
// behind the previous watermark, even if the clock moved backwards.
func (o *Orchestrator) appendLog(ctx context.Context, result *Result, message string) error {
	syncTime := o.opts.Now().UTC()
	if result.Since != nil && syncTime.Before(*result.Since) {
		syncTime = *result.Since
	}
	result.SyncTime = syncTime

	dbCtx, cancel := withTimeout(ctx, o.opts.DBTimeout)
	defer cancel()

	entry := &models.SyncLogEntry{
		SyncTime:       syncTime,
		RecordsFetched: result.Total,
		Status:         result.Status,
		Error:          message,
	}
	if err := o.store.InsertSyncLog(dbCtx, entry); err != nil {
		o.logger.Error("failed to write sync log", "err", err)
		return fmt.Errorf("failed to write sync log: %w", err)
	}
	return nil
}

func failureSummary(failures []ModuleFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, f.Err.Error())
	}
	return strings.Join(parts, "; ")
}
