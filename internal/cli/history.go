package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelproof/estcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// NewHistoryCommand creates the history command, which reads recorded runs
// back from the results database.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded conformance runs",
		Long: `Show recorded conformance runs.

Without arguments, lists runs most recent first. With a run id, shows that
run's outcomes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// runListing is the history command's per-run payload.
type runListing struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Scitype   string `json:"scitype,omitempty"`
	Estimator string `json:"estimator,omitempty"`
	Passed    int    `json:"passed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions, args []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()
	if len(args) == 1 {
		return showRun(ctx, formatter, st, args[0])
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	listings := make([]runListing, 0, len(runs))
	for _, run := range runs {
		listings = append(listings, toListing(run))
	}

	if opts.Format == "json" {
		return formatter.Success(listings)
	}
	for _, l := range listings {
		fmt.Fprintf(formatter.Writer, "%s  %s  %d passed, %d skipped, %d failed\n",
			l.ID, l.CreatedAt, l.Passed, l.Skipped, l.Failed)
	}
	return nil
}

func showRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	run, outcomes, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(struct {
			Run      runListing            `json:"run"`
			Outcomes []store.OutcomeRecord `json:"outcomes"`
		}{toListing(run), outcomes})
	}

	l := toListing(run)
	fmt.Fprintf(formatter.Writer, "%s  %s  %d passed, %d skipped, %d failed\n",
		l.ID, l.CreatedAt, l.Passed, l.Skipped, l.Failed)
	for _, rec := range outcomes {
		line := fmt.Sprintf("%s: %s", rec.Key, rec.Status)
		if rec.Detail != "" {
			line += ": " + rec.Detail
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}

func toListing(run store.Run) runListing {
	return runListing{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		Scitype:   run.Scitype,
		Estimator: run.Estimator,
		Passed:    run.Passed,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
	}
}
