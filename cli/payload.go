// ABOUTME: payload command printing the analytics payload as JSON
// ABOUTME: Shows exactly what the report generator would receive for a date
package cli

import (
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/brief"
	"github.com/spf13/cobra"
)

type PayloadOptions struct {
	*RootOptions
	Date     string
	Validate bool
	Prompt   bool
}

func NewPayloadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PayloadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "payload",
		Short:         "Print the analytics payload for a report date",
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
			asOf, err := parseReportDate(opts.Date, loc, time.Now)
			if err != nil {
				return err
			}
			aggregator, detector := newAnalytics(cfg, store, loc, logger)
			snap, err := aggregator.Aggregate(ctx, asOf)
			if err != nil {
				return fmt.Errorf("failed to aggregate: %w", err)
			}
			data, err := analytics.BuildPayload(snap, detector).JSON()
			if err != nil {
				return err
			}
			if opts.Validate {
				if err := brief.ValidatePayload(data); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.Prompt {
				fmt.Fprint(out, brief.BuildPrompt(data))
				return nil
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "Report date as YYYY-MM-DD in the report time zone (default today)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", true, "Check the payload against its JSON schema")
	cmd.Flags().BoolVar(&opts.Prompt, "prompt", false, "Print the full generator prompt instead of the bare payload")

	return cmd
}
