package commands

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/internal/report"
	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

type benchFlags struct {
	capacities  []int
	rounds      int
	seed        int64
	plotPath    string
	metricsAddr string
	maxMemory   string
}

func newBenchCommand(g *globalFlags, initFn initFunc) *cobra.Command {
	f := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time map and pool operations across capacities",
		Long: `Sweep the configured capacities and time ordered map insert, find and
erase plus node pool allocate and release. Capacities whose footprint
exceeds the memory budget are skipped.

With --metrics-addr the sweep serves Prometheus metrics and /healthz while
it runs. With --plot an HTML latency chart is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, g, f, initFn)
		},
	}

	flags := cmd.Flags()
	flags.IntSliceVar(&f.capacities, "capacities", nil, "capacities to sweep (overrides workload.capacities)")
	flags.IntVar(&f.rounds, "rounds", 0, "passes per capacity (default 3)")
	flags.Int64Var(&f.seed, "seed", 0, "random seed (overrides workload.seed)")
	flags.StringVar(&f.plotPath, "plot", "", "write an HTML latency chart to this path")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	flags.StringVar(&f.maxMemory, "max-memory", "", "largest container footprint to build (e.g. 64MiB, 0 for unlimited)")

	return cmd
}

func runBench(cmd *cobra.Command, g *globalFlags, f *benchFlags, initFn initFunc) error {
	sess, err := openSession(cmd, g, observability.ModeBench, initFn)
	if err != nil {
		return err
	}
	defer sess.close()

	wl := sess.cfg.Workload
	flags := cmd.Flags()

	if flags.Changed("capacities") {
		wl.Capacities = f.capacities
	}

	if flags.Changed("seed") {
		wl.Seed = f.seed
	}

	if flags.Changed("max-memory") {
		wl.MaxMemory = f.maxMemory
	}

	limit, err := wl.MaxMemoryBytes()
	if err != nil {
		return err
	}

	plotPath := sess.cfg.Report.PlotPath
	if flags.Changed("plot") {
		plotPath = f.plotPath
	}

	metricsAddr := sess.cfg.Telemetry.MetricsAddr
	if flags.Changed("metrics-addr") {
		metricsAddr = f.metricsAddr
	}

	ctx, cancel := sess.withTimeout(cmd.Context())
	defer cancel()

	meter := sess.providers.Meter

	if metricsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(ctx, metricsAddr, sess.logger)
		if diagErr != nil {
			return diagErr
		}

		defer func() {
			closeErr := diag.Close(context.Background())
			if closeErr != nil {
				sess.logger.Warn("diagnostics shutdown failed", "error", closeErr)
			}
		}()

		sess.logger.InfoContext(ctx, "serving metrics", "addr", diag.Addr())

		meter = diag.Meter()
	}

	ctx, span := sess.tracer().Start(ctx, "fixedkit.bench", trace.WithAttributes(
		attribute.IntSlice("capacities", wl.Capacities),
		attribute.String("max_memory", humanize.IBytes(limit)),
	))
	defer span.End()

	opMetrics, err := observability.NewOpMetrics(meter)
	if err != nil {
		return err
	}

	observers, err := poolObservers(ctx, meter, workload.ContainerMap, workload.ContainerPool)
	if err != nil {
		return err
	}

	runner := workload.NewRunner(sess.tracer(), sess.logger, opMetrics)

	res, err := runner.Bench(ctx, workload.BenchOptions{
		Observers:  func(container string) pool.Observer { return observers[container] },
		Capacities: wl.Capacities,
		Seed:       wl.Seed,
		Rounds:     f.rounds,
		MaxMemory:  limit,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("bench: %w", err)
	}

	err = sess.renderer.Bench(res)
	if err != nil {
		return err
	}

	if plotPath != "" {
		err = report.WritePlot(plotPath, res)
		if err != nil {
			return err
		}

		sess.logger.InfoContext(ctx, "plot written", "path", plotPath)
	}

	return nil
}

// poolObservers builds one PoolMetrics per container name.
func poolObservers(ctx context.Context, meter metric.Meter, containers ...string) (map[string]pool.Observer, error) {
	out := make(map[string]pool.Observer, len(containers))

	for _, name := range containers {
		pm, err := observability.NewPoolMetrics(ctx, meter, name)
		if err != nil {
			return nil, err
		}

		out[name] = pm
	}

	return out, nil
}
