package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/drivercheck/internal/config"
	"github.com/blackwell-systems/drivercheck/internal/output"
)

var (
	quickstartAccount        string
	quickstartUser           string
	quickstartRole           string
	quickstartWarehouse      string
	quickstartAuthenticator  string
	quickstartPrivateKeyPath string
	quickstartClassifier     string
	quickstartSkipRefresh    bool

	quickstartCmd = &cobra.Command{
		Use:   "quickstart",
		Short: "Write a config file, check the connection and run a first refresh",
		Long: `Runs the complete drivercheck setup workflow in a single command.

Steps performed:
  1. Write the config file with the connection settings given as flags
     (anything not given is taken from the existing config or environment)
  2. Connect to Snowflake to verify the settings
  3. Run a first refresh and print the compliance report

A password or Gemini API key taken from the environment is never written
to the config file; one the file already holds is kept as it is. Keep
SNOWFLAKE_PASSWORD in the environment or use key-pair or external browser
authentication.

This command is non-interactive.`,
		Example: `  # Password authentication, password from the environment
  export SNOWFLAKE_PASSWORD=...
  drivercheck quickstart --account acme-xy12345 --user ANALYST --role ACCOUNTADMIN

  # Key-pair authentication, classify with Cortex
  drivercheck quickstart --account acme-xy12345 --user SVC_DRIVERCHECK \
    --authenticator snowflake_jwt --private-key-path ~/.ssh/rsa_key.p8 --classifier cortex`,
		Args: cobra.NoArgs,
		RunE: runQuickstart,
	}
)

func init() {
	quickstartCmd.Flags().StringVar(&quickstartAccount, "account", "", "Snowflake account identifier")
	quickstartCmd.Flags().StringVar(&quickstartUser, "user", "", "Snowflake user")
	quickstartCmd.Flags().StringVar(&quickstartRole, "role", "", "role with access to SNOWFLAKE.ACCOUNT_USAGE")
	quickstartCmd.Flags().StringVar(&quickstartWarehouse, "warehouse", "", "warehouse for the usage query")
	quickstartCmd.Flags().StringVar(&quickstartAuthenticator, "authenticator", "", "snowflake, externalbrowser or snowflake_jwt")
	quickstartCmd.Flags().StringVar(&quickstartPrivateKeyPath, "private-key-path", "", "PEM private key for snowflake_jwt")
	quickstartCmd.Flags().StringVar(&quickstartClassifier, "classifier", "", "default classifier: rule, cortex, gemini")
	quickstartCmd.Flags().BoolVar(&quickstartSkipRefresh, "skip-refresh", false, "stop after the connection check")

	RootCmd.AddCommand(quickstartCmd)
}

func runQuickstart(cmd *cobra.Command, args []string) error {
	fmt.Println("Welcome to drivercheck! Running setup...")
	fmt.Println()

	c := settings()
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}

	// ── Step 1: Config ────────────────────────────────────────────────────────
	fmt.Println("Step 1/3: Writing config")
	applyQuickstartFlags(c)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := c.ValidateSnowflake(); err != nil {
		return err
	}

	// Secrets are written back exactly as the file held them, so values
	// taken from the environment never land on disk.
	onDisk, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	toSave := *c
	toSave.Snowflake.Password = onDisk.Snowflake.Password
	toSave.Gemini.APIKey = onDisk.Gemini.APIKey
	if err := toSave.Save(path); err != nil {
		return err
	}
	fmt.Printf("  ✓ Wrote %s\n", path)
	fmt.Printf("  Account %s, user %s, classifier %s\n", c.Snowflake.Account, c.Snowflake.User, c.Classifier)
	fmt.Println()

	// ── Step 2: Connection check ──────────────────────────────────────────────
	fmt.Println("Step 2/3: Connecting to Snowflake")
	ctx, cancel := context.WithTimeout(commandContext(cmd), pingTimeout)
	spinner := output.NewSpinner("Connecting to " + c.Snowflake.Account)
	spinner.Start()
	err = pingSnowflake(ctx, c)
	cancel()
	if err != nil {
		spinner.Stop()
		fmt.Printf("  ✗ Connection failed: %v\n", err)
		fmt.Println("  Fix the settings and run quickstart again, or run 'drivercheck doctor'")
		return fmt.Errorf("connection check failed: %w", err)
	}
	spinner.Stop()
	fmt.Println("  ✓ Connected")
	fmt.Println()

	// ── Step 3: First refresh ─────────────────────────────────────────────────
	if quickstartSkipRefresh {
		fmt.Println("Step 3/3: Skipped (--skip-refresh)")
	} else {
		fmt.Println("Step 3/3: Running first refresh")
		if err := runRefresh(cmd, args); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
	}
	fmt.Println()

	// ── Summary ───────────────────────────────────────────────────────────────
	fmt.Println("Setup complete!")
	fmt.Println()
	fmt.Println("What next:")
	fmt.Println("  • Find affected users: drivercheck users --status not-supported")
	fmt.Println("  • Explain a verdict:   drivercheck explain <driver> <version>")
	fmt.Println("  • Refresh any time:    drivercheck refresh")
	return nil
}

func applyQuickstartFlags(c *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Snowflake.Account, quickstartAccount)
	set(&c.Snowflake.User, quickstartUser)
	set(&c.Snowflake.Role, quickstartRole)
	set(&c.Snowflake.Warehouse, quickstartWarehouse)
	set(&c.Snowflake.Authenticator, quickstartAuthenticator)
	set(&c.Snowflake.PrivateKeyPath, quickstartPrivateKeyPath)
	set(&c.Classifier, quickstartClassifier)
}
