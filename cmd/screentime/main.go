/*
main.go - Application entry point

PURPOSE:
  The screentime binary: an HTTP API server plus a handful of read-only
  commands for checking the balance and records from a terminal.

COMMANDS:
  serve                         Run the HTTP API (graceful shutdown)
  balance [--since --until]     Print the balance
  adjustment-type list [-l N]   Table of adjustment types
  adjustments list              Table of adjustments [--type --since -l N]
  time-entries list             Table of time entries [--since -l N]
  version                       Print the version

GLOBAL FLAGS:
  --config      Config file (default: $HOME/.config/screentime/config.yaml)
  --db          Database DSN (SQLite path, ":memory:" or postgres:// URL)
  --log-level   debug, info, warn, error
  --log-format  console, json

ENVIRONMENT:
  SCREENTIME_* for every config key, plus DATABASE_URL, SERVER_ADDRESS
  and SERVER_PORT. A .env file in the working directory is loaded first.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the command context is cancelled. serve then:
  1. Stops accepting new connections
  2. Waits for active requests (server.shutdown_timeout)
  3. Stops the balance monitor
  4. Closes the database

EXAMPLES:
  screentime serve --db ./data/screentime.db --port 3000
  DATABASE_URL=postgres://localhost/screentime screentime balance
  screentime adjustments list --type 2 --since 2025-03-01 --limit 10

SEE ALSO:
  - config/config.go: Configuration layering
  - api/server.go:    Router configuration
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/screentime/config"
	"github.com/warp/screentime/store/sqlite"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "screentime",
		Short: "Track earned and spent screen time",
		Long: `screentime keeps a running screen-time balance: adjustments earn or
deduct minutes, time entries record minutes used, and the balance is
always derived from what is on record.`,
		PersistentPreRunE: a.initConfig,
		SilenceUsage:      true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/screentime/config.yaml)")
	flags.String("db", "", "database DSN (SQLite path, :memory:, or postgres:// URL)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("database.dsn", flags.Lookup("db"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.balanceCmd())
	root.AddCommand(a.adjustmentTypeCmd())
	root.AddCommand(a.adjustmentsCmd())
	root.AddCommand(a.timeEntriesCmd())
	root.AddCommand(versionCmd())

	return root
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.SetupLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "screentime %s\n", version)
			return err
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
