package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/output"
)

var (
	usersRunID      int64
	usersClassifier string
	usersDrivers    []string
	usersStatuses   []string
	usersVersion    string
	usersUser       string
	usersCSV        string

	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "Show which users connect with which driver versions",
		Long: `Drill down from driver versions to the users running them.

Each row is one user on one driver version, with that user's session count
and last access in the run's lookback window. Rows are ordered by session
count, highest first.

In CSV exports each row counts as one unique user and carries the user's
own session count.`,
		Example: `  # Everyone on an unsupported driver
  drivercheck users --status not-supported

  # Who still runs ODBC 2.25.0?
  drivercheck users --driver ODBC --version 2.25.0

  # One user's drivers
  drivercheck users --user ETL_SERVICE

  # Export for follow-up
  drivercheck users --status not-supported --csv user_details.csv`,
		Args: cobra.NoArgs,
		RunE: runUsers,
	}
)

func init() {
	usersCmd.Flags().Int64Var(&usersRunID, "run", 0, "run id (default: latest)")
	usersCmd.Flags().StringVar(&usersClassifier, "classifier", "", "classifier: rule, cortex, gemini (default from config)")
	usersCmd.Flags().StringSliceVar(&usersDrivers, "driver", nil, "only these drivers (repeatable, case-insensitive)")
	usersCmd.Flags().StringSliceVar(&usersStatuses, "status", nil, "only these statuses: supported, near, not-supported (repeatable)")
	usersCmd.Flags().StringVar(&usersVersion, "version", "", "only this exact driver version")
	usersCmd.Flags().StringVar(&usersUser, "user", "", "only this user (case-insensitive)")
	usersCmd.Flags().StringVar(&usersCSV, "csv", "", "write the rows as CSV to this file ('-' for stdout)")

	RootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	statuses, err := parseStatuses(usersStatuses)
	if err != nil {
		return err
	}
	classifier, err := resolveClassifier(usersClassifier)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, usage, support, err := loadRun(st, usersRunID)
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

	view := report.Filter(analyzer.Filter{
		Drivers:  usersDrivers,
		Statuses: statuses,
		Version:  usersVersion,
		User:     usersUser,
	})

	if usersCSV == "-" {
		return output.WriteDetailCSV(os.Stdout, view.Details)
	}

	fmt.Println(output.RenderRunHeader(run, classifier))
	fmt.Println()
	fmt.Print(output.RenderDetailTable(view.Details))

	if len(view.Details) > 0 {
		users := make(map[string]struct{})
		for _, d := range view.Details {
			users[d.User] = struct{}{}
		}
		fmt.Printf("\n%d rows, %d distinct users\n", len(view.Details), len(users))
	}

	if usersCSV != "" {
		return exportCSV(usersCSV, view, true)
	}
	return nil
}
