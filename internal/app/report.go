package app

import (
	"github.com/spf13/cobra"
)

var (
	reportRunID int64
	reportOpts  reportOptions

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Reclassify a stored run and print the compliance report",
		Long: `Print the compliance report for a stored run without querying Snowflake.

Verdicts are never stored: every report reclassifies the run's raw usage
against the run's support metadata, so alias changes and a different
--classifier take effect immediately.

KPIs always describe the whole run. --driver and --status narrow the table
and the CSV export only.`,
		Example: `  # Latest run, highest session counts first
  drivercheck report

  # A specific run, worst status first
  drivercheck report --run 12 --sort status

  # JDBC and ODBC versions that are not supported
  drivercheck report --driver JDBC,ODBC --status not-supported

  # CSV to stdout
  drivercheck report --csv - > driver_status_report.csv`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
)

func init() {
	reportCmd.Flags().Int64Var(&reportRunID, "run", 0, "run id (default: latest)")
	reportOpts.register(reportCmd)

	RootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := reportOpts.validate(); err != nil {
		return err
	}
	classifier, err := resolveClassifier(reportOpts.classifier)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, usage, support, err := loadRun(st, reportRunID)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	cls, closeCls, err := buildClassifier(ctx, classifier, nil)
	if err != nil {
		return err
	}
	defer closeCls()

	report, err := analyze(ctx, cls, usage, support)
	if err != nil {
		return err
	}
	return renderReport(run, classifier, report, &reportOpts)
}
