package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

// NewRootCommand creates the fixedkit root command with every subcommand.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(observability.InitWithWriter)
}

func newRootCommandWithDeps(initFn initFunc) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "fixedkit",
		Short: "Fixed-capacity containers: verification, benchmarks and diagnostics",
		Long: `fixedkit exercises the fixed-capacity pool, ordered map and set.

Commands:
  verify    Randomized insert/erase workload cross-checked against a model
  bench     Timing sweep over capacities
  replay    Run scripted scenarios
  dump      Print the balanced tree shape
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	g.register(root)

	root.AddCommand(
		newVerifyCommand(g, initFn),
		newBenchCommand(g, initFn),
		newReplayCommand(g, initFn),
		newDumpCommand(g, initFn),
		newVersionCommand(),
	)

	return root
}
