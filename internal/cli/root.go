// Package cli implements the estcheck command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelproof/estcheck/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the estcheck CLI. The
// directory supplies the estimators under test; the binary wires in the
// registered catalog, tests inject fakes.
func NewRootCommand(dir *registry.Directory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "estcheck",
		Short: "Conformance checks for estimator implementations",
		Long:  "estcheck runs the shared estimator contract checks (parameters, cloning, fitting, persistence) against registered estimator classes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts, dir))
	cmd.AddCommand(NewListCommand(opts, dir))
	cmd.AddCommand(NewChecksCommand(opts, dir))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
