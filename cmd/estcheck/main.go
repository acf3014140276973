// Command estcheck runs estimator conformance checks from the command
// line, backed by the bundled reference catalog.
package main

import (
	"fmt"
	"os"

	"github.com/modelproof/estcheck/internal/cli"
	"github.com/modelproof/estcheck/internal/testutil"
)

func main() {
	root := cli.NewRootCommand(testutil.NewDemoDirectory())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
