/*
main.go - Application entry point

PURPOSE:
  Command-line entry point of the dues engine. Loads configuration, sets up
  logging and dispatches to the subcommands.

COMMANDS:
  serve               Start the HTTP API and the expiry scheduler
  deactivate-expired  Switch off expired contribution types once and exit
  seed <scenario>     Reset the database and load a demo scenario

CONFIGURATION (lowest to highest precedence):
  1. Built-in defaults (config.SetDefaults)
  2. config.yaml in . or $HOME/.config/dues, or --config
  3. .env in the working directory
  4. DUES_* environment variables (DUES_SERVER_PORT, DUES_DATABASE_PATH, ...)
  5. Command-line flags

EXAMPLES:
  # Run with file database
  dues-server serve --db ./data/dues.db

  # Run with in-memory database and demo data
  dues-server serve --db :memory: --scenario rt-monthly

  # JSON logs on a different port
  DUES_SERVER_PORT=3000 dues-server serve --log-format json

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/dues-engine/config"
	"github.com/warp/dues-engine/dues"
	"github.com/warp/dues-engine/store/sqlite"
)

var (
	cfgFile string
	cfg     config.Config
	v       = viper.New()
	rootCmd = &cobra.Command{
		Use:   "dues-server",
		Short: "Periodic contribution reconciliation engine",
		Long: `dues-server tracks recurring dues (monthly, weekly, yearly or one-time)
for a roster of members, reconciles payments against the expected periods
and reports who is paid, pending or in arrears.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/dues/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path, \":memory:\" for in-memory")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(deactivateExpiredCmd())
	rootCmd.AddCommand(seedCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging(lc config.LoggingConfig) error {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch lc.Format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// openStore opens the configured database, creating its directory.
func openStore() (*sqlite.Store, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func reconciler() dues.Reconciler {
	r := dues.NewReconciler()
	r.MaxPeriods = cfg.Reconciler.MaxPeriods
	r.LegacyDailyFallback = cfg.Reconciler.LegacyDailyFallback
	return r
}
