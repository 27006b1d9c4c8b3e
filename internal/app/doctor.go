package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/config"
	"github.com/blackwell-systems/drivercheck/internal/output"
	"github.com/blackwell-systems/drivercheck/internal/store"
)

const pingTimeout = 30 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, database and Snowflake connectivity",
	Long: `Runs diagnostic checks on your drivercheck setup.

Checks:
  • Config file parses and is valid
  • Run database is readable and has runs
  • Snowflake connection settings are present and the account is reachable
  • The configured classifier has what it needs (Cortex: Snowflake, Gemini: API key)`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// pingSnowflake connects and pings. Replaced in tests.
var pingSnowflake = func(ctx context.Context, c *config.Config) error {
	client, closeFn, err := connectSnowflake(ctx, c)
	if err != nil {
		return err
	}
	defer closeFn()
	return client.Ping(ctx)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running drivercheck diagnostics...")
	fmt.Println()

	// Critical issues fail the command; warnings are informational.
	criticalIssues := 0
	warningIssues := 0

	// Check 1: Config
	c := settings()
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Println("✗ Cannot resolve config path:", err)
			criticalIssues++
		}
		path = p
	}
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("⚠ No config file at:", path)
			fmt.Println("  Using defaults and environment variables")
			warningIssues++
		} else {
			fmt.Println("✓ Config file found:", path)
		}
	}
	if err := c.Validate(); err != nil {
		fmt.Println("✗ Invalid config:", err)
		criticalIssues++
	} else {
		fmt.Printf("✓ Classifier: %s, lookback: %d days\n", c.Classifier, c.LookbackDays)
	}

	// Check 2: Database
	resolvedDBPath, err := getDBPath()
	if err != nil {
		fmt.Println("✗ Database path error:", err)
		criticalIssues++
	} else if _, err := os.Stat(resolvedDBPath); os.IsNotExist(err) {
		fmt.Println("⚠ No database yet at:", resolvedDBPath)
		fmt.Println("  Action: Run 'drivercheck refresh' or 'drivercheck import'")
		warningIssues++
	} else {
		criticalIssues, warningIssues = checkDatabase(resolvedDBPath, criticalIssues, warningIssues)
	}

	// Check 3: Snowflake
	snowflakeOK := false
	if err := c.ValidateSnowflake(); err != nil {
		if c.Classifier == config.ClassifierCortex {
			fmt.Println("✗ Snowflake not configured:", err)
			criticalIssues++
		} else {
			fmt.Println("⚠ Snowflake not configured:", err)
			fmt.Println("  'refresh' needs a connection; 'import' and stored runs still work")
			warningIssues++
		}
	} else {
		ctx, cancel := context.WithTimeout(commandContext(cmd), pingTimeout)
		spinner := output.NewSpinner(fmt.Sprintf("Connecting to %s as %s", c.Snowflake.Account, c.Snowflake.User))
		spinner.Start()
		start := time.Now()
		err := pingSnowflake(ctx, c)
		cancel()
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			spinner.StopWithMessage(fmt.Sprintf("✗ Snowflake connection failed (%v)", elapsed))
			fmt.Printf("  %v\n", err)
			fmt.Println("  Action: Check SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER and credentials")
			criticalIssues++
		} else {
			spinner.StopWithMessage(fmt.Sprintf("✓ Snowflake reachable: %s (%v)", c.Snowflake.Account, elapsed))
			snowflakeOK = true
		}
	}

	// Check 4: Classifier prerequisites
	switch c.Classifier {
	case config.ClassifierGemini:
		if c.Gemini.APIKey == "" {
			fmt.Println("✗ Gemini classifier selected but no API key")
			fmt.Println("  Action: Set GEMINI_API_KEY or gemini.api_key")
			criticalIssues++
		} else {
			fmt.Printf("✓ Gemini API key set (model %s)\n", c.Gemini.Model)
		}
	case config.ClassifierCortex:
		if snowflakeOK {
			fmt.Printf("✓ Cortex classifier will use model %s\n", c.Cortex.Model)
		}
	}

	fmt.Println()
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Println("✓ All checks passed!")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  • Fetch usage: drivercheck refresh")
		fmt.Println("  • Find affected users: drivercheck users --status not-supported")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	fmt.Printf("Found %d warning(s). drivercheck is usable but not fully configured.\n", warningIssues)
	return nil
}

func checkDatabase(path string, criticalIssues, warningIssues int) (int, int) {
	st, err := store.New(path)
	if err != nil {
		fmt.Println("✗ Cannot open database:", err)
		return criticalIssues + 1, warningIssues
	}
	defer st.Close()
	fmt.Println("✓ Database found:", path)

	if ok, err := st.Initialized(); err != nil {
		fmt.Println("✗ Cannot read database:", err)
		return criticalIssues + 1, warningIssues
	} else if !ok {
		fmt.Println("⚠ Database has no schema yet")
		fmt.Println("  Action: Run 'drivercheck refresh' or 'drivercheck import'")
		return criticalIssues, warningIssues + 1
	}

	latest, err := st.LatestRun()
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		fmt.Println("⚠ No stored runs")
		fmt.Println("  Action: Run 'drivercheck refresh' or 'drivercheck import'")
		return criticalIssues, warningIssues + 1
	case err != nil:
		fmt.Println("✗ Cannot read runs:", err)
		return criticalIssues + 1, warningIssues
	}

	runs, err := st.ListRuns()
	if err != nil {
		fmt.Println("✗ Cannot read runs:", err)
		return criticalIssues + 1, warningIssues
	}
	fmt.Printf("✓ %d stored run(s), latest %s from %s\n",
		len(runs), humanSince(latest.CreatedAt), latest.Source)
	return criticalIssues, warningIssues
}

func humanSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
