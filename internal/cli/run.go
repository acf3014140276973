package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modelproof/estcheck/internal/config"
	"github.com/modelproof/estcheck/internal/harness"
	"github.com/modelproof/estcheck/internal/registry"
	"github.com/modelproof/estcheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config    string
	Database  string
	Scitype   string
	Estimator string
	Raise     bool
	Manifest  string

	Tests            []string
	Fixtures         []string
	ExcludedTests    []string
	ExcludedFixtures []string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, dir *registry.Directory) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run conformance checks",
		Long: `Run the estimator conformance checks.

Without --estimator, every discovered estimator class participates. With
--estimator, the pass targets that one registered class, bypassing
discovery. Test and fixture filters narrow the pass further; keys given to
--fixture must match display keys exactly.

Example:
  estcheck run --config harness.cue --db results.db
  estcheck run --estimator NaiveForecaster --test test_constructor`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd, opts, dir)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE configuration file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history database")
	cmd.Flags().StringVar(&opts.Scitype, "scitype", "", "restrict to one estimator type")
	cmd.Flags().StringVar(&opts.Estimator, "estimator", "", "run against a single registered class")
	cmd.Flags().StringArrayVar(&opts.Tests, "test", nil, "test name to run (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Fixtures, "fixture", nil, "exact fixture key to run (repeatable)")
	cmd.Flags().StringArrayVar(&opts.ExcludedTests, "exclude-test", nil, "test name to exclude (repeatable)")
	cmd.Flags().StringArrayVar(&opts.ExcludedFixtures, "exclude-fixture", nil, "exact fixture key to exclude (repeatable)")
	cmd.Flags().BoolVar(&opts.Raise, "raise", false, "abort on the first failure")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "write a YAML run manifest to this path")

	return cmd
}

func runChecks(cmd *cobra.Command, opts *RunOptions, dir *registry.Directory) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Scitype != "" {
		cfg.Scitype = opts.Scitype
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	suiteCfg := cfg.SuiteConfig()
	if opts.Verbose {
		suiteCfg.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	suite := harness.NewSuite(dir, suiteCfg)

	runOpts := harness.RunOptions{
		RaiseExceptions: opts.Raise,
		Verbose:         opts.Verbose,
	}
	if opts.Tests != nil {
		runOpts.TestsToRun = opts.Tests
	}
	if opts.Fixtures != nil {
		runOpts.FixturesToRun = opts.Fixtures
	}
	if opts.ExcludedTests != nil {
		runOpts.TestsToExclude = opts.ExcludedTests
	}
	if opts.ExcludedFixtures != nil {
		runOpts.FixturesToExclude = opts.ExcludedFixtures
	}

	var results harness.Results
	var err error
	if opts.Estimator != "" {
		entry, ok := dir.Lookup(opts.Estimator)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("estimator %q is not registered", opts.Estimator))
		}
		results, err = suite.RunTests(entry, runOpts)
	} else {
		results, err = suite.RunAll(runOpts)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "conformance pass failed to execute", err)
	}

	passed, skipped, failed := results.Counts()

	var runID string
	if cfg.Database != "" {
		st, openErr := store.Open(cfg.Database)
		if openErr != nil {
			return WrapExitError(ExitCommandError, "failed to open database", openErr)
		}
		defer st.Close()

		run, recErr := st.RecordRun(context.Background(), store.RunMeta{
			Scitype:   cfg.Scitype,
			Estimator: opts.Estimator,
		}, results)
		if recErr != nil {
			return WrapExitError(ExitCommandError, "failed to record run", recErr)
		}
		runID = run.ID
		formatter.VerboseLog("run recorded: %s", runID)
	}

	if opts.Manifest != "" {
		if err := writeManifest(opts, runID, results); err != nil {
			return WrapExitError(ExitCommandError, "failed to write manifest", err)
		}
	}

	summary := runSummary{
		RunID:   runID,
		Passed:  passed,
		Skipped: skipped,
		Failed:  failed,
		Total:   len(results),
	}
	if opts.Format == "json" {
		summary.Outcomes = sortedOutcomes(results)
		if err := formatter.Success(summary); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		printTextSummary(formatter, summary, results)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d conformance check(s) failed", failed))
	}
	return nil
}

// runSummary is the run command's output payload.
type runSummary struct {
	RunID    string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Passed   int              `json:"passed" yaml:"passed"`
	Skipped  int              `json:"skipped" yaml:"skipped"`
	Failed   int              `json:"failed" yaml:"failed"`
	Total    int              `json:"total" yaml:"total"`
	Outcomes []keyedOutcome   `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

type keyedOutcome struct {
	Key    string `json:"key" yaml:"key"`
	Status string `json:"status" yaml:"status"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// runManifest is the YAML document written by --manifest.
type runManifest struct {
	RunID     string         `yaml:"run_id,omitempty"`
	CreatedAt string         `yaml:"created_at"`
	Scitype   string         `yaml:"scitype,omitempty"`
	Estimator string         `yaml:"estimator,omitempty"`
	Summary   runSummary     `yaml:"summary"`
	Outcomes  []keyedOutcome `yaml:"outcomes"`
}

func writeManifest(opts *RunOptions, runID string, results harness.Results) error {
	passed, skipped, failed := results.Counts()
	manifest := runManifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Scitype:   opts.Scitype,
		Estimator: opts.Estimator,
		Summary: runSummary{
			RunID:   runID,
			Passed:  passed,
			Skipped: skipped,
			Failed:  failed,
			Total:   len(results),
		},
		Outcomes: sortedOutcomes(results),
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(opts.Manifest, data, 0o644)
}

// sortedOutcomes flattens a result mapping to a key-ordered slice.
func sortedOutcomes(results harness.Results) []keyedOutcome {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]keyedOutcome, 0, len(keys))
	for _, key := range keys {
		o := results[key]
		rec := keyedOutcome{Key: key}
		switch o.Status {
		case harness.Passed:
			rec.Status = "PASSED"
		case harness.Skipped:
			rec.Status = "SKIPPED"
			rec.Detail = o.Reason
		default:
			rec.Status = "FAILED"
			if o.Err != nil {
				rec.Detail = o.Err.Error()
			}
		}
		out = append(out, rec)
	}
	return out
}

func printTextSummary(f *OutputFormatter, summary runSummary, results harness.Results) {
	fmt.Fprintf(f.Writer, "%d passed, %d skipped, %d failed (%d total)\n",
		summary.Passed, summary.Skipped, summary.Failed, summary.Total)
	if summary.RunID != "" {
		fmt.Fprintf(f.Writer, "run id: %s\n", summary.RunID)
	}
	for _, rec := range sortedOutcomes(results) {
		if rec.Status == "PASSED" && !f.Verbose {
			continue
		}
		line := fmt.Sprintf("%s: %s", rec.Key, rec.Status)
		if rec.Detail != "" {
			line += ": " + rec.Detail
		}
		fmt.Fprintln(f.Writer, line)
	}
}
