// Package workload drives randomized verification and benchmark sweeps over
// the fixed-capacity containers.
package workload

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

const instrumentationName = "fixedkit/workload"

// cancelCheckEvery bounds how many steps run between context checks.
const cancelCheckEvery = 1024

// Option errors.
var (
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrInvalidOperations = errors.New("operations must be positive")
	ErrInvalidKeySpace   = errors.New("key space must be positive")
	ErrInvalidEraseRatio = errors.New("erase ratio must be within [0, 1]")
	ErrNoCapacities      = errors.New("no capacities to benchmark")
	ErrKeyLost           = errors.New("key lost by container")
	ErrLeakedSlots       = errors.New("slots still live after a full drain")
)

// Runner executes workloads with shared tracing, logging and metrics.
type Runner struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *observability.OpMetrics
}

// NewRunner creates a Runner. A nil tracer or logger falls back to a no-op
// tracer and [slog.Default]; nil metrics disables operation recording.
func NewRunner(tracer trace.Tracer, logger *slog.Logger, metrics *observability.OpMetrics) *Runner {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(instrumentationName)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{tracer: tracer, logger: logger, metrics: metrics}
}

func (r *Runner) record(ctx context.Context, op, status string, started time.Time) {
	if r.metrics == nil {
		return
	}

	r.metrics.RecordOp(ctx, op, status, time.Since(started))
}

func (r *Runner) recordFailure(ctx context.Context, op string, kind error) {
	if r.metrics == nil {
		return
	}

	r.metrics.RecordFailure(ctx, op, kind)
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic workload.
}

func checkCancel(ctx context.Context, step int) error {
	if step%cancelCheckEvery != 0 {
		return nil
	}

	return ctx.Err()
}

// RandomKeys returns n distinct keys drawn from [0, keySpace) in insertion
// order. keySpace is raised to n when smaller.
func RandomKeys(seed int64, n, keySpace int) []int {
	if n <= 0 {
		return nil
	}

	keySpace = max(keySpace, n)

	return newRand(seed).Perm(keySpace)[:n]
}
