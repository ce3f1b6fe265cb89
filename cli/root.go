// ABOUTME: Root cobra command with global flags and shared setup helpers
// ABOUTME: Builds the logger, loads configuration and opens the store for subcommands
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/config"
	"github.com/keenanpereira/pulse/db"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	DBURL      string
	DBPath     string
	LogLevel   string
	LogFormat  string

	// Version is reported by --version and the MCP server.
	Version string
}

// NewRootCommand creates the root pulse command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "Daily CRM sync and executive briefing",
		Long: `pulse pulls new and changed records from Zoho CRM into a local or
Postgres store, computes sales analytics with rule-based anomaly flags,
asks a language model for a written briefing, saves the dashboard report
and sends the short version over WhatsApp.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.LogFormat {
			case "", "text", "json":
			default:
				return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", opts.LogFormat)
			}
			if opts.LogLevel != "" {
				if _, err := log.ParseLevel(opts.LogLevel); err != nil {
					return fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (default $PULSE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.DBURL, "db-url", "", "Database URL, postgres:// or sqlite:// (overrides DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db-path", "", "SQLite path when no database URL is set (default: XDG data dir)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json (overrides config)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewPayloadCommand(opts))
	cmd.AddCommand(NewBriefingsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// loadConfig reads configuration and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.DBURL != "" {
		cfg.Database.URL = o.DBURL
	}
	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	return cfg, nil
}

// newLogger builds the structured logger. Logs go to stderr so stdout stays
// clean for command output such as JSON payloads.
func (o *RootOptions) newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "pulse",
	})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

// openStore opens the configured database.
func (o *RootOptions) openStore(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	overrides, err := cfg.Database.Overrides()
	if err != nil {
		return nil, err
	}
	resolver := db.NewResolver(overrides, cfg.Database.DoHURL, cfg.Database.DoHHosts)

	openCtx, cancel := withTimeout(ctx, cfg.Timeouts.DB)
	defer cancel()
	store, err := db.Open(openCtx, cfg.Database.URL, cfg.Database.Path, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// setup loads config, builds the logger and opens the store in one step.
func (o *RootOptions) setup(cmd *cobra.Command) (*config.Config, *log.Logger, *db.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := o.newLogger(cmd.ErrOrStderr(), cfg)
	store, err := o.openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
