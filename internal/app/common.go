package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/config"
	"github.com/blackwell-systems/drivercheck/internal/gemini"
	"github.com/blackwell-systems/drivercheck/internal/output"
	"github.com/blackwell-systems/drivercheck/internal/snowflake"
	"github.com/blackwell-systems/drivercheck/internal/source"
	"github.com/blackwell-systems/drivercheck/internal/store"
)

// settings returns the loaded config, or the defaults when a command runs
// without the root's PersistentPreRunE (tests).
func settings() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

// commandContext returns the command's context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the run database and ensures the schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return st, nil
}

// loadRun returns run id (or the latest run when id is 0) with its inputs.
func loadRun(st *store.Store, id int64) (*store.Run, []compliance.UsageRecord, []compliance.SupportInfo, error) {
	var (
		run *store.Run
		err error
	)
	if id == 0 {
		run, err = st.LatestRun()
	} else {
		run, err = st.GetRun(id)
	}
	if errors.Is(err, store.ErrRunNotFound) && id == 0 {
		return nil, nil, nil, fmt.Errorf("%w\nRun 'drivercheck refresh' or 'drivercheck import' first", err)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	usage, support, err := st.GetRunInputs(run.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load run %d: %w", run.ID, err)
	}
	return run, usage, support, nil
}

// newRemoteSource connects to Snowflake. Replaced in tests.
var newRemoteSource = func(ctx context.Context, c *config.Config) (source.Source, func(), error) {
	client, closeFn, err := connectSnowflake(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return client, closeFn, nil
}

// connectSnowflake opens a Snowflake connection with the configured retry
// policy.
func connectSnowflake(ctx context.Context, c *config.Config) (*snowflake.Client, func(), error) {
	if err := c.ValidateSnowflake(); err != nil {
		return nil, nil, err
	}
	db, err := snowflake.Open(c.Snowflake)
	if err != nil {
		return nil, nil, err
	}
	client := snowflake.NewClient(db,
		snowflake.WithRetry(c.Retry.Attempts, c.Retry.Delay),
		snowflake.WithLogger(logger))
	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Debug("failed to close snowflake connection", zap.Error(err))
		}
	}
	return client, closeFn, nil
}

// resolveClassifier picks the flag value over the config value.
func resolveClassifier(flag string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" {
		name = settings().Classifier
	}
	if !config.ValidClassifier(name) {
		return "", fmt.Errorf("invalid classifier %q: must be one of: %s", name, strings.Join(config.ValidClassifiers, ", "))
	}
	return name, nil
}

// buildClassifier creates the named classifier. sf is reused for cortex
// when non-nil; otherwise a connection is opened. The returned func
// releases anything opened here.
func buildClassifier(ctx context.Context, name string, sf *snowflake.Client) (compliance.Classifier, func(), error) {
	c := settings()
	noop := func() {}

	switch name {
	case config.ClassifierRule:
		return compliance.RuleClassifier{}, noop, nil

	case config.ClassifierCortex:
		closeFn := noop
		if sf == nil {
			client, cl, err := connectSnowflake(ctx, c)
			if err != nil {
				return nil, nil, fmt.Errorf("cortex classifier: %w", err)
			}
			sf, closeFn = client, cl
		}
		cortex := snowflake.NewCortex(sf, c.Cortex.Model)
		logger.Debug("using cortex classifier", zap.String("model", cortex.Model()))
		return compliance.NewModelClassifier(cortex, logger), closeFn, nil

	case config.ClassifierGemini:
		g, err := gemini.New(ctx, c.Gemini.APIKey, c.Gemini.Model,
			gemini.WithRetry(c.Retry.Attempts, c.Retry.Delay),
			gemini.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("gemini classifier: %w (set gemini.api_key or GEMINI_API_KEY)", err)
		}
		logger.Debug("using gemini classifier", zap.String("model", g.Model()))
		return compliance.NewModelClassifier(g, logger), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown classifier %q", name)
}

// analyze classifies inputs with driver aliases applied. Model-backed
// classifiers get a progress bar on stderr.
func analyze(ctx context.Context, cls compliance.Classifier, usage []compliance.UsageRecord, support []compliance.SupportInfo) (*analyzer.Report, error) {
	opts := []analyzer.Option{
		analyzer.WithAliases(loadAliases()),
		analyzer.WithLogger(logger),
	}

	var bar *output.ProgressBar
	if cls.Name() != compliance.RuleSource {
		opts = append(opts, analyzer.WithProgress(func(done, total int, key analyzer.Key, v compliance.Verdict) {
			if bar == nil {
				bar = output.NewProgress(total, "Classifying")
			}
			bar.Step(done, fmt.Sprintf("%s %s → %s", key.Driver, key.Version, v.Status))
		}))
	}

	report, err := analyzer.New(cls, opts...).Analyze(ctx, usage, support)
	if bar != nil {
		bar.Finish()
	}
	return report, err
}

// loadAliases merges the user's alias file over the built-in aliases.
func loadAliases() map[string]string {
	dir, err := config.Dir()
	if err != nil {
		return config.DefaultAliases
	}
	ac, err := config.LoadAliases(dir)
	if err != nil {
		logger.Warn("failed to read driver aliases, using defaults", zap.Error(err))
		return config.DefaultAliases
	}
	if len(ac.Skipped) > 0 {
		logger.Warn("skipped malformed driver alias lines",
			zap.String("file", filepath.Join(dir, config.AliasFile)),
			zap.Ints("lines", ac.Skipped))
	}
	return ac.WithDefaults()
}

// reportOptions are the filter, sort and export flags shared by refresh
// and report.
type reportOptions struct {
	classifier string
	drivers    []string
	statuses   []string
	sortBy     string
	csvPath    string
	detail     bool
}

func (o *reportOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.classifier, "classifier", "", "classifier: rule, cortex, gemini (default from config)")
	cmd.Flags().StringSliceVar(&o.drivers, "driver", nil, "only these drivers (repeatable, case-insensitive)")
	cmd.Flags().StringSliceVar(&o.statuses, "status", nil, "only these statuses: supported, near, not-supported (repeatable)")
	cmd.Flags().StringVar(&o.sortBy, "sort", analyzer.SortSessions, "sort by: "+strings.Join(analyzer.SortOrders, ", "))
	cmd.Flags().StringVar(&o.csvPath, "csv", "", "write the report as CSV to this file ('-' for stdout)")
	cmd.Flags().BoolVar(&o.detail, "detail", false, "show per-user rows instead of per-version summary")
}

func (o *reportOptions) validate() error {
	if !analyzer.ValidSort(o.sortBy) {
		return fmt.Errorf("invalid sort: %s (must be %s)", o.sortBy, strings.Join(analyzer.SortOrders, ", "))
	}
	_, err := parseStatuses(o.statuses)
	return err
}

func (o *reportOptions) filter() (analyzer.Filter, error) {
	statuses, err := parseStatuses(o.statuses)
	if err != nil {
		return analyzer.Filter{}, err
	}
	return analyzer.Filter{Drivers: o.drivers, Statuses: statuses}, nil
}

func parseStatuses(values []string) ([]compliance.Status, error) {
	var out []compliance.Status
	for _, v := range values {
		s, err := compliance.ParseStatus(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --status: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// renderReport prints the run header, KPIs and the requested table, or
// writes CSV. KPIs always cover the unfiltered report.
func renderReport(run *store.Run, classifier string, report *analyzer.Report, o *reportOptions) error {
	f, err := o.filter()
	if err != nil {
		return err
	}
	view := report.Filter(f)
	analyzer.SortSummaries(view.Summaries, o.sortBy)

	if o.csvPath == "-" {
		return writeReportCSV(os.Stdout, view, o.detail)
	}

	fmt.Println(output.RenderRunHeader(run, classifier))
	fmt.Println(output.RenderKPIs(report.KPIs()))
	fmt.Println()
	if o.detail {
		fmt.Print(output.RenderDetailTable(view.Details))
	} else {
		fmt.Print(output.RenderSummaryTable(view.Summaries))
	}

	if o.csvPath != "" {
		if err := exportCSV(o.csvPath, view, o.detail); err != nil {
			return err
		}
	}
	return nil
}

func writeReportCSV(w io.Writer, view *analyzer.Report, detail bool) error {
	if detail {
		return output.WriteDetailCSV(w, view.Details)
	}
	return output.WriteSummaryCSV(w, view.Summaries)
}

// exportCSV writes the report to path and reports the row count.
func exportCSV(path string, view *analyzer.Report, detail bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := writeReportCSV(f, view, detail); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}

	n := len(view.Summaries)
	if detail {
		n = len(view.Details)
	}
	fmt.Printf("\nWrote %d rows to %s\n", n, path)
	return nil
}
