package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal    = "fixedkit.ops.total"
	metricOpDuration  = "fixedkit.op.duration.seconds"
	metricFailures    = "fixedkit.failures.total"
	metricSlotsLive   = "fixedkit.pool.slots.live"
	metricSlotsEvents = "fixedkit.pool.events.total"

	attrOp        = "op"
	attrStatus    = "status"
	attrKind      = "kind"
	attrContainer = "container"
	attrEvent     = "event"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusMiss marks a lookup or erase that found nothing.
	StatusMiss = "miss"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// opBucketBoundaries covers 50ns to 1ms: single container operations.
var opBucketBoundaries = []float64{ //nolint:gochecknoglobals // histogram layout.
	50e-9, 100e-9, 250e-9, 500e-9, 1e-6, 2.5e-6, 5e-6, 10e-6, 50e-6, 100e-6, 1e-3,
}

// OpMetrics holds rate, error and duration instruments for container
// operations driven by the workload runners.
type OpMetrics struct {
	opsTotal   metric.Int64Counter
	opDuration metric.Float64Histogram
	failures   metric.Int64Counter
}

// NewOpMetrics creates the operation instruments from mt.
func NewOpMetrics(mt metric.Meter) (*OpMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of container operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Container operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(opBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	failures, err := mt.Int64Counter(metricFailures,
		metric.WithDescription("Total number of reported container failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFailures, err)
	}

	return &OpMetrics{
		opsTotal:   opsTotal,
		opDuration: opDuration,
		failures:   failures,
	}, nil
}

// RecordOp records one operation with its status and duration.
func (om *OpMetrics) RecordOp(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	om.opsTotal.Add(ctx, 1, attrs)
	om.opDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFailure counts a failure of the given kind.
func (om *OpMetrics) RecordFailure(ctx context.Context, op string, kind error) {
	om.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrKind, kind.Error()),
	))
}

// PoolMetrics exports node pool activity. It implements pool.Observer.
type PoolMetrics struct {
	ctx    context.Context //nolint:containedctx // observer callbacks carry no context.
	live   metric.Int64Gauge
	events metric.Int64Counter
	attrs  attribute.Set
}

// NewPoolMetrics creates pool instruments labelled with the container name.
func NewPoolMetrics(ctx context.Context, mt metric.Meter, container string) (*PoolMetrics, error) {
	live, err := mt.Int64Gauge(metricSlotsLive,
		metric.WithDescription("Live slots in the container node pool"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSlotsLive, err)
	}

	events, err := mt.Int64Counter(metricSlotsEvents,
		metric.WithDescription("Node pool allocations, releases and failures"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSlotsEvents, err)
	}

	return &PoolMetrics{
		ctx:    ctx,
		live:   live,
		events: events,
		attrs:  attribute.NewSet(attribute.String(attrContainer, container)),
	}, nil
}

// Allocated records an allocation.
func (pm *PoolMetrics) Allocated(live int) {
	pm.record("allocate", live)
}

// Released records a release.
func (pm *PoolMetrics) Released(live int) {
	pm.record("release", live)
}

// Failed records a pool failure.
func (pm *PoolMetrics) Failed(kind error) {
	pm.events.Add(pm.ctx, 1, metric.WithAttributeSet(pm.attrs), metric.WithAttributes(
		attribute.String(attrEvent, "failure"),
		attribute.String(attrKind, kind.Error()),
	))
}

func (pm *PoolMetrics) record(event string, live int) {
	pm.events.Add(pm.ctx, 1, metric.WithAttributeSet(pm.attrs), metric.WithAttributes(
		attribute.String(attrEvent, event),
	))
	pm.live.Record(pm.ctx, int64(live), metric.WithAttributeSet(pm.attrs))
}
