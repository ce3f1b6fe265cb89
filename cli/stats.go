// ABOUTME: stats and migrate commands
// ABOUTME: stats renders the all-time dashboard overview; migrate applies and reports the schema version
package cli

import (
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/viz"
	"github.com/spf13/cobra"
)

func NewStatsCommand(opts *RootOptions) *cobra.Command {
	var date string
	var rows int
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show the CRM dashboard overview",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			asOf, err := parseReportDate(date, loc, time.Now)
			if err != nil {
				return err
			}
			aggregator, detector := newAnalytics(cfg, store, loc, logger)
			ov, err := aggregator.Overview(ctx, asOf)
			if err != nil {
				return fmt.Errorf("failed to build overview: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), viz.RenderOverview(ov, viz.OverviewOptions{
				Money:      detector.FormatAmount,
				Thresholds: thresholds(cfg),
				MaxRows:    rows,
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Report date as YYYY-MM-DD in the report time zone (default today)")
	cmd.Flags().IntVar(&rows, "rows", 8, "Maximum rows per breakdown")
	return cmd
}

// NewMigrateCommand opens the store, which applies pending migrations, and
// reports the resulting version.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply database migrations and print the schema version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, dirty, err := db.SchemaVersion(store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s schema at version %d\n", store.Dialect(), version)
			if dirty {
				fmt.Fprintln(out, "  Warning: schema is marked dirty; a previous migration did not finish")
			}
			return nil
		},
	}
}
