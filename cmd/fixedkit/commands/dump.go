package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/internal/report"
	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

type dumpFlags struct {
	keys     []int
	count    int
	capacity int
	seed     int64
}

func newDumpCommand(g *globalFlags, initFn initFunc) *cobra.Command {
	f := &dumpFlags{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Insert keys into a set and print the tree shape",
		Long: `Build a fixed-capacity ordered set from --keys, or from --count random keys,
then print its nodes in pre-order with the stored balance lean and pool slot.`,
		Example: `  fixedkit dump --keys 5,3,8,1,4
  fixedkit dump --count 20 --seed 7 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDump(cmd, g, f, initFn)
		},
	}

	flags := cmd.Flags()
	flags.IntSliceVar(&f.keys, "keys", nil, "keys to insert, in order")
	flags.IntVar(&f.count, "count", 0, "insert this many random keys instead of --keys")
	flags.IntVar(&f.capacity, "capacity", 0, "set capacity (default: number of keys)")
	flags.Int64Var(&f.seed, "seed", 0, "random seed for --count (overrides workload.seed)")

	cmd.MarkFlagsMutuallyExclusive("keys", "count")

	return cmd
}

func runDump(cmd *cobra.Command, g *globalFlags, f *dumpFlags, initFn initFunc) error {
	sess, err := openSession(cmd, g, observability.ModeCLI, initFn)
	if err != nil {
		return err
	}
	defer sess.close()

	keys := f.keys

	if f.count > 0 {
		seed := sess.cfg.Workload.Seed
		if cmd.Flags().Changed("seed") {
			seed = f.seed
		}

		keys = workload.RandomKeys(seed, f.count, sess.cfg.Workload.KeySpace)
	}

	capacity := f.capacity
	if capacity <= 0 {
		capacity = len(keys)
	}

	_, span := sess.tracer().Start(cmd.Context(), "fixedkit.dump", trace.WithAttributes(
		attribute.Int("keys", len(keys)),
		attribute.Int("capacity", capacity),
	))
	defer span.End()

	set := ordered.NewSet[int](capacity, ordered.WithHandler(sess.handler))

	for _, k := range keys {
		_, _, insErr := set.Insert(k)
		if insErr != nil {
			return fmt.Errorf("insert %d: %w", k, insErr)
		}
	}

	tree := set.Tree()

	return report.Tree(sess.renderer, tree.Nodes(), set.Len(), tree.Height(), func(k *int) string {
		return strconv.Itoa(*k)
	})
}
