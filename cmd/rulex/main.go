// Command rulex is the rule engine's CLI, the Go-native stand-in for
// the Python original's example scripts: compile a rule, check it
// against JSON input, or watch a rule file and re-check it on save.
// Cobra wiring follows holomush-holomush/cmd/holomush/root.go's
// root-command-plus-subcommands layout; this teacher's own CLI
// (opal-lang-opal/cmd/devcmd) used the plain "flag" package instead.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rulex",
		Short: "rulex compiles and evaluates rule engine expressions",
	}
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newWatchCmd())
	return cmd
}
