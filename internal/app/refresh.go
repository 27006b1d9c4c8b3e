package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/output"
	"github.com/blackwell-systems/drivercheck/internal/snowflake"
	"github.com/blackwell-systems/drivercheck/internal/source"
	"github.com/blackwell-systems/drivercheck/internal/store"
)

var (
	refreshLookbackDays int
	refreshNoSave       bool
	refreshOpts         reportOptions

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Fetch driver usage from Snowflake and print the compliance report",
		Long: `Query Snowflake for client driver usage over the lookback window and the
current driver version-support table, classify every driver version, and
print the compliance report.

Usage comes from SNOWFLAKE.ACCOUNT_USAGE.SESSIONS, grouped by client
application and user. Snowflake UI and Snowsight sessions are excluded.
Support metadata comes from SYSTEM$CLIENT_VERSION_INFO(). Both queries run
concurrently; if either fails nothing is printed or saved.

The raw results are saved as a run (unless --no-save) so that 'report',
'users' and 'explain' can work offline. Only the newest keep_runs runs are
kept.

The role you connect with needs access to SNOWFLAKE.ACCOUNT_USAGE.`,
		Example: `  # Last 30 days with the deterministic classifier
  drivercheck refresh

  # Last 7 days, classify with Cortex
  drivercheck refresh --lookback-days 7 --classifier cortex

  # Only problem drivers, exported to CSV
  drivercheck refresh --status not-supported --status near --csv driver_status_report.csv`,
		RunE: runRefresh,
	}
)

func init() {
	refreshCmd.Flags().IntVar(&refreshLookbackDays, "lookback-days", 0, "days of session history to scan (default from config: 30)")
	refreshCmd.Flags().BoolVar(&refreshNoSave, "no-save", false, "do not store this run")
	refreshOpts.register(refreshCmd)

	RootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	c := settings()
	if err := refreshOpts.validate(); err != nil {
		return err
	}
	classifier, err := resolveClassifier(refreshOpts.classifier)
	if err != nil {
		return err
	}
	lookback := refreshLookbackDays
	if lookback == 0 {
		lookback = c.LookbackDays
	}
	if lookback < 0 {
		return fmt.Errorf("invalid --lookback-days: %d (must be positive)", lookback)
	}

	ctx := commandContext(cmd)

	src, closeSrc, err := newRemoteSource(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to connect to Snowflake: %w", err)
	}
	defer closeSrc()

	sf, _ := src.(*snowflake.Client)
	cls, closeCls, err := buildClassifier(ctx, classifier, sf)
	if err != nil {
		return err
	}
	defer closeCls()

	spinner := output.NewSpinner(fmt.Sprintf("Fetching driver usage for the last %d days and support metadata", lookback))
	spinner.Start()
	in, err := source.Fetch(ctx, src, lookback, logger)
	if err != nil {
		spinner.Stop()
		return err
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ %d usage rows, %d drivers with support metadata", len(in.Usage), len(in.Support)))

	run := &store.Run{
		CreatedAt:    in.FetchedAt,
		Account:      in.Account.Name,
		Region:       in.Account.Region,
		LookbackDays: in.LookbackDays,
		Source:       store.SourceSnowflake,
	}
	if !refreshNoSave {
		if err := saveRun(run, in); err != nil {
			return err
		}
	}

	if len(in.Usage) == 0 {
		fmt.Printf("No driver usage rows returned for the last %d days.\n", lookback)
		return nil
	}

	report, err := analyze(ctx, cls, in.Usage, in.Support)
	if err != nil {
		return err
	}

	if refreshOpts.csvPath != "-" {
		fmt.Println()
	}
	return renderReport(run, classifier, report, &refreshOpts)
}

// saveRun stores the inputs and prunes old runs.
func saveRun(run *store.Run, in *source.Inputs) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.SaveRun(run, in.Usage, in.Support)
	if err != nil {
		return err
	}
	run.ID = id
	run.UsageCount, run.SupportCount = len(in.Usage), len(in.Support)

	if keep := settings().KeepRuns; keep > 0 {
		n, err := st.PruneRuns(keep)
		if err != nil {
			logger.Warn("failed to prune old runs", zap.Error(err))
		} else if n > 0 {
			logger.Debug("pruned old runs", zap.Int("deleted", n), zap.Int("keep", keep))
		}
	}
	return nil
}
