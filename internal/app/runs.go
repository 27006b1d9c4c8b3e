package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/output"
)

var (
	runsPrune  int
	runsDelete int64

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List, prune or delete stored runs",
		Long: `List the runs stored by 'refresh' and 'import', newest first.

A run holds the raw usage rows and support metadata of one fetch. Verdicts
are not stored; 'report', 'users' and 'explain' recompute them.

--prune keeps the newest N runs and deletes the rest. refresh prunes to
keep_runs (default 20) automatically.`,
		Example: `  # List runs
  drivercheck runs

  # Keep only the 5 newest runs
  drivercheck runs --prune 5

  # Delete one run
  drivercheck runs --delete 12`,
		Args: cobra.NoArgs,
		RunE: runRuns,
	}
)

func init() {
	runsCmd.Flags().IntVar(&runsPrune, "prune", -1, "keep only the newest N runs")
	runsCmd.Flags().Int64Var(&runsDelete, "delete", 0, "delete the run with this id")

	RootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if runsPrune >= 0 && runsDelete != 0 {
		return fmt.Errorf("--prune and --delete cannot be used together")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case runsDelete != 0:
		if err := st.DeleteRun(runsDelete); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted run %d\n", runsDelete)
		return nil

	case runsPrune >= 0:
		n, err := st.PruneRuns(runsPrune)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Pruned %d run(s), kept the newest %d\n", n, runsPrune)
		return nil
	}

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	fmt.Print(output.RenderRunsTable(runs))
	return nil
}
