// ABOUTME: MCP server subcommand
// ABOUTME: Serves stored briefings, sync history and live analytics over stdio
package cli

import (
	"github.com/keenanpereira/pulse/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func NewMCPCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "mcp",
		Short:         "Start the MCP server on stdio",
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

			analyticsHandlers, err := newAnalyticsHandlers(cfg, store, logger)
			if err != nil {
				return err
			}

			logger.Info("starting MCP server", "version", opts.Version, "dialect", store.Dialect())
			server := handlers.NewServer(opts.Version, store, analyticsHandlers)
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
