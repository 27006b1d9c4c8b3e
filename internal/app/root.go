package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blackwell-systems/drivercheck/internal/config"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	// Set in PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()

	// RootCmd is the root command for drivercheck
	RootCmd = &cobra.Command{
		Use:   "drivercheck",
		Short: "Snowflake client driver version compliance",
		Long: `drivercheck finds which Snowflake client drivers your account's users
connect with and classifies every driver version against Snowflake's
version-support table as Supported, Near End of Support or Not Supported.

Usage is read from SNOWFLAKE.ACCOUNT_USAGE.SESSIONS over a trailing lookback
window (30 days by default) and support metadata from
SYSTEM$CLIENT_VERSION_INFO(). Each refresh is stored locally so reports can
be re-run and filtered without querying Snowflake again.

Quick Start:
  1. export SNOWFLAKE_PASSWORD=...
  2. drivercheck quickstart --account <account> --user <user>
  3. drivercheck users --status not-supported

  Or configure by hand (SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER, ...), then run
  'drivercheck doctor' and 'drivercheck refresh'.

Classifiers:
  rule    deterministic version comparison (default)
  cortex  SNOWFLAKE.CORTEX.COMPLETE, falling back to rules on bad answers
  gemini  Google Gemini, falling back to rules on bad answers

Examples:
  # Fetch the last 30 days and print the compliance report
  drivercheck refresh

  # Re-run the latest stored report, only unsupported JDBC versions
  drivercheck report --driver JDBC --status not-supported

  # Export per-user details
  drivercheck users --csv users.csv

  # Why is this version flagged?
  drivercheck explain ODBC 2.25.0`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.drivercheck/drivercheck.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/drivercheck/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// setup builds the logger and loads the config for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	l, err := newLogger(verbose)
	if err != nil {
		return err
	}
	logger = l

	path := configPath
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = c

	logger.Debug("config loaded",
		zap.String("path", path),
		zap.String("classifier", cfg.Classifier),
		zap.Int("lookback_days", cfg.LookbackDays))
	return nil
}

// newLogger returns a production zap logger on stderr. Only warnings are
// shown unless verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	// Create .drivercheck directory if it doesn't exist
	dir := filepath.Join(home, ".drivercheck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create drivercheck directory: %w", err)
	}

	return filepath.Join(dir, "drivercheck.db"), nil
}
