// ABOUTME: run command executing the full daily pipeline once
// ABOUTME: Lock, sync, analytics, briefing generation and dispatch with a printed summary
package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/keenanpereira/pulse/pipeline"
	"github.com/keenanpereira/pulse/sync"
	"github.com/spf13/cobra"
)

type RunOptions struct {
	*RootOptions
	Date string
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily pipeline once",
		Long: `Run syncs changed CRM records, computes the day's analytics, asks the
language model for a briefing, saves the dashboard report and sends the
WhatsApp summary. Only one run executes at a time; a second invocation
exits with status 2 while the lock is held.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "Report date as YYYY-MM-DD in the report time zone (default today)")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	asOf, err := parseReportDate(opts.Date, loc, time.Now)
	if err != nil {
		return err
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg)
	store, err := opts.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner, err := newRunner(cfg, store, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summary, err := runner.Run(ctx, asOf)
	switch {
	case errors.Is(err, pipeline.ErrLocked):
		return wrapExitError(ExitLocked, "skipped", err)
	case errors.Is(err, sync.ErrAuthentication):
		// Nothing was fetched and the watermark is untouched.
		fmt.Fprintf(out, "✗ CRM authentication failed: %v\n", err)
		return nil
	case err != nil:
		printRunSummary(out, summary)
		return err
	}

	printRunSummary(out, summary)
	if summary.Outcome != nil {
		if dispatchErr := summary.Outcome.Err(); dispatchErr != nil {
			return fmt.Errorf("dispatch incomplete: %w", dispatchErr)
		}
	}
	return nil
}

func printRunSummary(w io.Writer, s *pipeline.Summary) {
	if s == nil {
		return
	}
	if s.Sync != nil {
		fmt.Fprintf(w, "✓ Sync %s: %d record(s)", s.Sync.Status, s.Sync.Total)
		if s.Sync.Since != nil {
			fmt.Fprintf(w, " since %s", s.Sync.Since.Format(time.RFC3339))
		} else {
			fmt.Fprint(w, " (initial load)")
		}
		fmt.Fprintln(w)
		for _, module := range models.SyncModules {
			if n, ok := s.Sync.Fetched[module]; ok {
				fmt.Fprintf(w, "  %s: %d\n", module, n)
			}
		}
		for _, f := range s.Sync.Failures {
			fmt.Fprintf(w, "  ✗ %s: %v\n", f.Module, f.Err)
		}
	}
	if s.Payload != nil {
		fmt.Fprintf(w, "✓ Analytics for %s: %d anomaly flag(s)\n", s.ReportDate, len(s.Payload.Anomalies))
	}
	if !s.Generated() {
		if s.Payload != nil {
			fmt.Fprintln(w, "✗ No briefing generated; nothing dispatched")
		}
		return
	}
	fmt.Fprintf(w, "✓ Briefing split (dashboard: %s, whatsapp: %s)\n", s.Report.DashboardTier, s.Report.ChannelTier)
	if s.Outcome == nil {
		return
	}
	if s.Outcome.Saved {
		fmt.Fprintf(w, "✓ Dashboard report saved for %s\n", s.ReportDate)
	} else {
		fmt.Fprintf(w, "✗ Dashboard report not saved: %v\n", s.Outcome.SaveErr)
	}
	if s.Outcome.Sent {
		fmt.Fprintf(w, "✓ WhatsApp message sent (%s)\n", s.Outcome.MessageSID)
	} else {
		fmt.Fprintf(w, "✗ WhatsApp message not sent: %v\n", s.Outcome.SendErr)
	}
}

// parseReportDate resolves --date in loc; empty means now.
func parseReportDate(date string, loc *time.Location, now func() time.Time) (time.Time, error) {
	if date == "" {
		return now().In(loc), nil
	}
	t, err := time.ParseInLocation(models.ReportDateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t, nil
}
