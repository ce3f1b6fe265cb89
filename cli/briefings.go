// ABOUTME: briefings and history commands over stored reports and sync logs
// ABOUTME: briefings list, briefings show [date] and history render with lipgloss
package cli

import (
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/keenanpereira/pulse/viz"
	"github.com/spf13/cobra"
)

func NewBriefingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "briefings",
		Short: "Browse stored dashboard briefings",
	}
	cmd.AddCommand(newBriefingsListCommand(opts))
	cmd.AddCommand(newBriefingsShowCommand(opts))
	return cmd
}

func newBriefingsListCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List report dates with a stored briefing, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, _, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			dates, err := store.ListBriefingDates(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(dates) == 0 {
				fmt.Fprintln(out, "No briefings found")
				return nil
			}
			if limit > 0 && len(dates) > limit {
				dates = dates[:limit]
			}
			for _, d := range dates {
				fmt.Fprintln(out, d)
			}
			fmt.Fprintf(out, "\nTotal: %d briefing(s)\n", len(dates))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of dates to list (0 for all)")
	return cmd
}

func newBriefingsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show [date]",
		Short:         "Show the briefing for a date, or the most recent one",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, _, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var b *models.Briefing
			if len(args) == 0 {
				b, err = store.LatestBriefing(ctx)
			} else {
				if _, perr := time.Parse(models.ReportDateLayout, args[0]); perr != nil {
					return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", args[0])
				}
				b, err = store.GetBriefing(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("briefing not found")
			}
			fmt.Fprint(cmd.OutOrStdout(), viz.RenderBriefing(b))
			return nil
		},
	}
}

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recent sync runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			entries, err := store.SyncHistory(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), viz.RenderSyncHistory(entries, loc))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
