package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/source"
	"github.com/blackwell-systems/drivercheck/internal/store"
)

var (
	importUsage        string
	importSupport      string
	importAccount      string
	importRegion       string
	importLookbackDays int

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Store usage and support metadata exported from Snowflake as a run",
		Long: `Load offline inputs and store them as a run, for accounts drivercheck
cannot connect to directly.

--usage is a CSV with a header row. Columns are matched by name,
case-insensitively:
  driver, version            or  client_application_id ("JDBC 3.13.30")
  user (or user_name)
  session_count
  last_accessed              optional; RFC 3339, "2006-01-02 15:04:05" or "2006-01-02"

--support is the JSON returned by SELECT SYSTEM$CLIENT_VERSION_INFO(),
either the array itself or the quoted string Snowflake returns.

The usage file is stored as-is; --lookback-days only labels the run.`,
		Example: `  # Export on a machine with Snowflake access:
  #   snowsql -q "SELECT SYSTEM\$CLIENT_VERSION_INFO()" -o output_format=plain > support.json
  # then import:
  drivercheck import --usage sessions.csv --support support.json --account ACME

  # And report on it
  drivercheck report`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}
)

func init() {
	importCmd.Flags().StringVar(&importUsage, "usage", "", "usage CSV file (required)")
	importCmd.Flags().StringVar(&importSupport, "support", "", "SYSTEM$CLIENT_VERSION_INFO() JSON file (required)")
	importCmd.Flags().StringVar(&importAccount, "account", "", "account name to record with the run")
	importCmd.Flags().StringVar(&importRegion, "region", "", "region to record with the run")
	importCmd.Flags().IntVar(&importLookbackDays, "lookback-days", 0, "lookback window the usage file covers (default from config: 30)")
	_ = importCmd.MarkFlagRequired("usage")
	_ = importCmd.MarkFlagRequired("support")

	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importUsage == "" || importSupport == "" {
		return fmt.Errorf("--usage and --support are required")
	}
	lookback := importLookbackDays
	if lookback == 0 {
		lookback = settings().LookbackDays
	}

	src := &source.FileSource{
		UsagePath:   importUsage,
		SupportPath: importSupport,
		Acct:        source.Account{Name: importAccount, Region: importRegion},
	}
	in, err := source.Fetch(commandContext(cmd), src, lookback, logger)
	if err != nil {
		return err
	}

	run := &store.Run{
		CreatedAt:    in.FetchedAt,
		Account:      in.Account.Name,
		Region:       in.Account.Region,
		LookbackDays: in.LookbackDays,
		Source:       store.SourceImport,
	}
	if err := saveRun(run, in); err != nil {
		return err
	}

	fmt.Printf("✓ Imported run %d: %d usage rows, %d drivers with support metadata\n",
		run.ID, len(in.Usage), len(in.Support))
	fmt.Println("  Run 'drivercheck report' to classify it.")
	return nil
}
