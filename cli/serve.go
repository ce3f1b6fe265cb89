// ABOUTME: serve command for the read-only dashboard API
// ABOUTME: Runs the HTTP server until interrupted
package cli

import (
	"github.com/keenanpereira/pulse/web"
	"github.com/spf13/cobra"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve briefings and analytics as a JSON API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			analyticsHandlers, err := newAnalyticsHandlers(cfg, store, logger)
			if err != nil {
				return err
			}
			return web.NewServer(opts.Version, store, analyticsHandlers, logger).Start(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
