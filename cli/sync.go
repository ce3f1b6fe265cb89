// ABOUTME: sync command running only the CRM fetch and upsert stage
// ABOUTME: Shares the run lock with the full pipeline so the two never overlap
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/keenanpereira/pulse/config"
	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/models"
	"github.com/keenanpereira/pulse/pipeline"
	"github.com/keenanpereira/pulse/sync"
	"github.com/spf13/cobra"
)

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync changed CRM records without generating a briefing",
		Long: `Sync fetches Leads, Deals, Contacts and Accounts modified since the last
successful sync, upserts them and appends a sync log entry. The first sync
loads full history.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}
}

func runSync(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	logger := opts.newLogger(cmd.ErrOrStderr(), cfg)
	store, err := opts.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Syncing Zoho CRM...")
	var result *sync.Result
	err = withRunLock(ctx, cfg, store, logger, func() error {
		var runErr error
		result, runErr = newOrchestrator(cfg, store, logger).Run(ctx)
		return runErr
	})
	if result != nil {
		for _, module := range models.SyncModules {
			if n, ok := result.Fetched[module]; ok {
				fmt.Fprintf(out, "  ✓ %s: %d fetched, %d written\n", module, n, result.Written[module])
			}
		}
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  ✗ %s: %v\n", f.Module, f.Err)
		}
	}
	if errors.Is(err, pipeline.ErrLocked) {
		return wrapExitError(ExitLocked, "skipped", err)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Sync %s: %d record(s) at %s\n", result.Status, result.Total, result.SyncTime.Format(time.RFC3339))
	return nil
}

// withRunLock runs fn while holding the shared pipeline lock.
func withRunLock(ctx context.Context, cfg *config.Config, store *db.Store, logger *log.Logger, fn func() error) error {
	holder := uuid.NewString()
	lockCtx, cancel := withTimeout(ctx, cfg.Timeouts.DB)
	acquired, err := store.AcquireLock(lockCtx, cfg.Lock.Name, holder, cfg.Lock.TTL)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return pipeline.ErrLocked
	}
	defer func() {
		releaseCtx, cancel := withTimeout(context.WithoutCancel(ctx), cfg.Timeouts.DB)
		defer cancel()
		if err := store.ReleaseLock(releaseCtx, cfg.Lock.Name, holder); err != nil {
			logger.Error("failed to release run lock", "err", err)
		}
	}()
	return fn()
}
