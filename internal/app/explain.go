package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/config"
	"github.com/blackwell-systems/drivercheck/internal/output"
)

var (
	explainRunID      int64
	explainClassifier string

	explainCmd = &cobra.Command{
		Use:   "explain <driver> <version>",
		Short: "Show how a driver version is classified",
		Long: `Classify one driver version against a stored run's support metadata and
show the rule trace: the minimum supported, end-of-support and recommended
versions, the near-end-of-support window, and the deterministic verdict.

With a model classifier the model's answer is shown next to the rule
verdict.

The version does not need to appear in the run's usage.`,
		Example: `  # Explain ODBC 2.25.0 against the latest run
  drivercheck explain ODBC 2.25.0

  # Driver names are matched case-insensitively and through aliases
  drivercheck explain python 2.7.1

  # Compare with Cortex
  drivercheck explain JDBC 3.13.0 --classifier cortex`,
		Args: cobra.ExactArgs(2),
		RunE: runExplain,
	}
)

func init() {
	explainCmd.Flags().Int64Var(&explainRunID, "run", 0, "run id (default: latest)")
	explainCmd.Flags().StringVar(&explainClassifier, "classifier", "", "classifier: rule, cortex, gemini (default from config)")

	RootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	driver, ver := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if driver == "" {
		return fmt.Errorf("driver name must not be empty")
	}

	classifier, err := resolveClassifier(explainClassifier)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	_, _, support, err := loadRun(st, explainRunID)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	cls, closeCls, err := buildClassifier(ctx, classifier, nil)
	if err != nil {
		return err
	}
	defer closeCls()

	a := analyzer.New(cls, analyzer.WithAliases(loadAliases()), analyzer.WithLogger(logger))
	e := a.Explain(ctx, driver, ver, support)

	fmt.Print(output.RenderExplanation(e))
	if e.Support == nil {
		fmt.Printf("\n%q has no entry in SYSTEM$CLIENT_VERSION_INFO(). Add a line such as %s=<name> to %s if it is known under another name.\n",
			driver, driver, aliasFileHint())
	}
	return nil
}

// aliasFileHint names the alias file for messages.
func aliasFileHint() string {
	dir, err := config.Dir()
	if err != nil {
		return "the drivercheck aliases file"
	}
	return filepath.Join(dir, config.AliasFile)
}
