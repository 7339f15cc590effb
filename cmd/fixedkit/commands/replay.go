package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/internal/scenario"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

func newReplayCommand(g *globalFlags, initFn initFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>...",
		Short: "Run scripted container scenarios",
		Long: `Replay one or more YAML scenario scripts. Each script is validated against
the scenario schema, then its steps run against a fresh set or map.
Every step is followed by a structural check of the tree.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, g, initFn, args)
		},
	}
}

func runReplay(cmd *cobra.Command, g *globalFlags, initFn initFunc, paths []string) error {
	sess, err := openSession(cmd, g, observability.ModeCLI, initFn)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, cancel := sess.withTimeout(cmd.Context())
	defer cancel()

	failed := 0

	for _, path := range paths {
		script, loadErr := scenario.Load(path)
		if loadErr != nil {
			return loadErr
		}

		scriptCtx, span := sess.tracer().Start(ctx, "fixedkit.replay", trace.WithAttributes(
			attribute.String("script.path", path),
			attribute.String("script.name", script.Name),
			attribute.String("script.container", script.Container),
		))

		res, replayErr := scenario.Replay(scriptCtx, script, sess.logger)
		if replayErr != nil {
			span.SetStatus(codes.Error, replayErr.Error())
			span.End()

			return fmt.Errorf("replay %s: %w", path, replayErr)
		}

		if !res.Passed() {
			failed++

			span.SetStatus(codes.Error, ErrScenarioFailed.Error())
		}

		span.SetAttributes(attribute.Int("steps.failed", len(res.Failed())))
		span.End()

		err = sess.renderer.Replay(res)
		if err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d scripts", ErrScenarioFailed, failed, len(paths))
	}

	return nil
}
