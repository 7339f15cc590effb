// Package commands implements CLI command handlers for fixedkit.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/internal/report"
	"github.com/Sumatoshi-tech/fixedkit/pkg/config"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
	"github.com/Sumatoshi-tech/fixedkit/pkg/version"
)

// Command outcome errors. Both map to a non-zero exit status.
var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrScenarioFailed     = errors.New("scenario failed")
)

// initFunc builds observability providers writing logs to w.
type initFunc func(cfg observability.Config, w io.Writer) (observability.Providers, error)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	format     string
	logLevel   string
	policy     string
	noColor    bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "config file (default: fixedkit.yaml in ., ./config, /etc/fixedkit)")
	flags.StringVarP(&g.format, "format", "f", "", "output format: table, json, yaml")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&g.policy, "policy", "", "failure policy: silent, log, panic")
	flags.BoolVar(&g.noColor, "no-color", false, "disable coloured output")
}

// session is the per-invocation runtime: configuration, telemetry, the
// failure handler and the output renderer.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	handler   fault.Handler
	renderer  *report.Renderer
}

func (s *session) tracer() trace.Tracer { return s.providers.Tracer }

// close flushes telemetry. Errors are logged, never returned.
func (s *session) close() {
	if s.providers.Shutdown == nil {
		return
	}

	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
}

// openSession loads configuration, applies the global flag overrides and
// initializes telemetry for mode.
func openSession(cmd *cobra.Command, g *globalFlags, mode observability.AppMode, initFn initFunc) (*session, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	if g.format != "" {
		cfg.Report.Format = g.format
	}

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	if g.policy != "" {
		cfg.Fault.Policy = g.policy
	}

	if g.noColor {
		cfg.Report.NoColor = true
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	providers, err := initFn(cfg.Observability(mode, version.Version), cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	logger := providers.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if providers.Tracer == nil {
		providers.Tracer = observability.NoopTracer()
	}

	if providers.Meter == nil {
		providers.Meter = observability.NoopMeter()
	}

	handler, err := cfg.FaultHandler(logger)
	if err != nil {
		return nil, err
	}

	renderer, err := report.New(cmd.OutOrStdout(), cfg.Report.Format, cfg.Report.NoColor)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		providers: providers,
		logger:    logger,
		handler:   handler,
		renderer:  renderer,
	}, nil
}

// withTimeout bounds ctx by the configured workload timeout.
func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Workload.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.Workload.Timeout)
}
