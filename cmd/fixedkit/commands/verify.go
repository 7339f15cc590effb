package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

type verifyFlags struct {
	capacity   int
	operations int
	keySpace   int
	seed       int64
	eraseRatio float64
}

func newVerifyCommand(g *globalFlags, initFn initFunc) *cobra.Command {
	f := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check the ordered set against a sorted model",
		Long: `Run a seeded random insert/erase workload on a fixed-capacity ordered set.
After every step the tree is validated (ordering, balance, node accounting)
and its in-order keys are compared with a sorted-slice model. The first
divergence is reported with a key diff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, g, f, initFn)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.capacity, "capacity", 0, "set capacity (overrides workload.capacity)")
	flags.IntVarP(&f.operations, "operations", "n", 0, "number of operations (overrides workload.operations)")
	flags.IntVar(&f.keySpace, "key-space", 0, "keys are drawn from [0, key-space)")
	flags.Int64Var(&f.seed, "seed", 0, "random seed (overrides workload.seed)")
	flags.Float64Var(&f.eraseRatio, "erase-ratio", 0, "probability of an erase step")

	return cmd
}

func runVerify(cmd *cobra.Command, g *globalFlags, f *verifyFlags, initFn initFunc) error {
	sess, err := openSession(cmd, g, observability.ModeVerify, initFn)
	if err != nil {
		return err
	}
	defer sess.close()

	wl := sess.cfg.Workload
	flags := cmd.Flags()

	if flags.Changed("capacity") {
		wl.Capacity = f.capacity
	}

	if flags.Changed("operations") {
		wl.Operations = f.operations
	}

	if flags.Changed("key-space") {
		wl.KeySpace = f.keySpace
	}

	if flags.Changed("seed") {
		wl.Seed = f.seed
	}

	if flags.Changed("erase-ratio") {
		wl.EraseRatio = f.eraseRatio
	}

	ctx, cancel := sess.withTimeout(cmd.Context())
	defer cancel()

	ctx, span := sess.tracer().Start(ctx, "fixedkit.verify", trace.WithAttributes(
		attribute.String("fault.policy", sess.cfg.Fault.Policy),
	))
	defer span.End()

	metrics, err := observability.NewOpMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	poolMetrics, err := observability.NewPoolMetrics(ctx, sess.providers.Meter, "set")
	if err != nil {
		return err
	}

	runner := workload.NewRunner(sess.tracer(), sess.logger, metrics)

	res, err := runner.Verify(ctx, workload.VerifyOptions{
		Handler:    sess.handler,
		Observer:   poolMetrics,
		Capacity:   wl.Capacity,
		Operations: wl.Operations,
		KeySpace:   wl.KeySpace,
		Seed:       wl.Seed,
		EraseRatio: wl.EraseRatio,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("verify: %w", err)
	}

	err = sess.renderer.Verify(res)
	if err != nil {
		return err
	}

	if !res.Passed() {
		span.SetStatus(codes.Error, ErrVerificationFailed.Error())

		return fmt.Errorf("%w at step %d", ErrVerificationFailed, res.Mismatch.Step)
	}

	return nil
}
