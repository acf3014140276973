package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelproof/estcheck/internal/harness"
	"github.com/modelproof/estcheck/internal/registry"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Scitype string
	All     bool
}

// estimatorInfo is the list command's per-class payload.
type estimatorInfo struct {
	Name       string   `json:"name"`
	Scitype    string   `json:"scitype"`
	Params     []string `json:"params,omitempty"`
	SkipAll    bool     `json:"skip_all,omitempty"`
	TestParams int      `json:"test_param_sets"`
}

// NewListCommand creates the list command, which enumerates the registered
// estimator classes.
func NewListCommand(rootOpts *RootOptions, dir *registry.Directory) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered estimator classes",
		Long: `List the estimator classes registered in the catalog.

By default only classes that participate in conformance passes are shown;
--all includes classes opted out via tags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEstimators(cmd, opts, dir)
		},
	}

	cmd.Flags().StringVar(&opts.Scitype, "scitype", "", "restrict to one estimator type")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include classes excluded from testing")

	return cmd
}

func listEstimators(cmd *cobra.Command, opts *ListOptions, dir *registry.Directory) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var entries []*registry.Entry
	if opts.All {
		for _, e := range dir.All() {
			if opts.Scitype == "" || e.Scitype == opts.Scitype {
				entries = append(entries, e)
			}
		}
	} else {
		entries = registry.Discover(dir, registry.DiscoverOptions{Scitype: opts.Scitype})
	}

	infos := make([]estimatorInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, estimatorInfo{
			Name:       e.Name,
			Scitype:    e.Scitype,
			Params:     e.ParamNames,
			SkipAll:    e.ClassTags.GetBool("tests:skip_all", false),
			TestParams: len(e.GetTestParams()),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		line := fmt.Sprintf("%s (%s)", info.Name, info.Scitype)
		if info.SkipAll {
			line += " [skipped]"
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}

// NewChecksCommand creates the checks command, which lists the registered
// conformance check names as accepted by run --test.
func NewChecksCommand(rootOpts *RootOptions, dir *registry.Directory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checks",
		Short:         "List conformance check names",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			suite := harness.NewSuite(dir, harness.SuiteConfig{})
			names := make([]string, 0, len(suite.Checks()))
			for _, c := range suite.Checks() {
				names = append(names, c.Name)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(names)
			}
			for _, name := range names {
				fmt.Fprintln(formatter.Writer, name)
			}
			return nil
		},
	}
	return cmd
}
