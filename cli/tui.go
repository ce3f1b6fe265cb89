// ABOUTME: tui command launching the interactive briefing browser
// ABOUTME: Wires the store and a locked sync pass into the bubbletea program
package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/sync"
	"github.com/keenanpereira/pulse/tui"
	"github.com/spf13/cobra"
)

func NewTUICommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tui",
		Short:         "Browse briefings and sync history interactively",
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

			var runSync tui.SyncFunc
			if cfg.ValidateSync() == nil {
				// The TUI owns the terminal, so sync logs are discarded.
				quiet := log.New(io.Discard)
				orchestrator := newOrchestrator(cfg, store, quiet)
				runSync = func(ctx context.Context) (*sync.Result, error) {
					var result *sync.Result
					err := withRunLock(ctx, cfg, store, quiet, func() error {
						var runErr error
						result, runErr = orchestrator.Run(ctx)
						return runErr
					})
					return result, err
				}
			}

			program := tea.NewProgram(tui.NewModel(ctx, store, runSync, loc), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("tui failed: %w", err)
			}
			return nil
		},
	}
}
