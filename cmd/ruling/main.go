// Command ruling loads script-backed rule sets, runs them against a set of
// bindings and inspects the audit trail they leave.
package main

import (
	"fmt"
	"os"

	"github.com/algox/ruling-class-sub004/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
