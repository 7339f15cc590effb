package workload

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/container"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/budget"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

// Container names reported in samples.
const (
	ContainerMap  = "map"
	ContainerPool = "pool"
)

const defaultRounds = 3

// payload is the pool benchmark element: roughly one cache line.
type payload struct {
	id   int
	data [7]int
}

// BenchOptions configures a benchmark sweep.
type BenchOptions struct {
	// Observers returns a node pool observer for the named container, or nil.
	Observers  func(container string) pool.Observer
	Capacities []int
	Seed       int64
	Rounds     int    // Passes per capacity; zero means 3.
	MaxMemory  uint64 // Largest container footprint to build; zero means unlimited.
}

// Sample is the timing of one operation kind at one capacity.
type Sample struct {
	Container string        `json:"container" yaml:"container"`
	Op        string        `json:"op"        yaml:"op"`
	Capacity  int           `json:"capacity"  yaml:"capacity"`
	Ops       int           `json:"ops"       yaml:"ops"`
	Total     time.Duration `json:"total_ns"  yaml:"total_ns"`
	Footprint uint64        `json:"footprint" yaml:"footprint"`
}

// PerOp returns the mean duration of one operation.
func (s Sample) PerOp() time.Duration {
	if s.Ops == 0 {
		return 0
	}

	return s.Total / time.Duration(s.Ops)
}

// OpsPerSec returns throughput in operations per second.
func (s Sample) OpsPerSec() float64 {
	if s.Total <= 0 {
		return 0
	}

	return float64(s.Ops) / s.Total.Seconds()
}

// BenchResult holds all samples of a sweep.
type BenchResult struct {
	Samples  []Sample           `json:"samples"  yaml:"samples"`
	Skipped  []budget.Footprint `json:"skipped"  yaml:"skipped"`
	Duration time.Duration      `json:"duration" yaml:"duration"`
}

// MapSlotBytes is the node slot size of an ordered.Map[int, int].
func MapSlotBytes() uint64 {
	return ordered.NewMap[int, int](0).Stats().SlotBytes
}

// Bench sweeps the configured capacities. For each capacity it times
// map insert, find and erase over a shuffled key permutation, then pool
// allocate and release until full and empty. Capacities whose map
// footprint exceeds MaxMemory are skipped.
func (r *Runner) Bench(ctx context.Context, opts BenchOptions) (BenchResult, error) {
	if len(opts.Capacities) == 0 {
		return BenchResult{}, ErrNoCapacities
	}

	for _, c := range opts.Capacities {
		if c <= 0 {
			return BenchResult{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, c)
		}
	}

	plan, err := budget.Solve(opts.Capacities, MapSlotBytes(), opts.MaxMemory)
	if err != nil {
		return BenchResult{}, fmt.Errorf("plan capacities: %w", err)
	}

	for _, fp := range plan.Rejected {
		r.logger.WarnContext(ctx, "capacity exceeds memory limit, skipping",
			"capacity", fp.Capacity, "footprint", fp.Total, "limit", plan.Limit)
	}

	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = defaultRounds
	}

	ctx, span := r.tracer.Start(ctx, "workload.bench", trace.WithAttributes(
		attribute.IntSlice("capacities", plan.Capacities()),
		attribute.Int("rounds", rounds),
	))
	defer span.End()

	result := BenchResult{Skipped: plan.Rejected}
	started := time.Now()
	rng := newRand(opts.Seed)

	for _, fp := range plan.Accepted {
		samples, benchErr := r.benchCapacity(ctx, fp.Capacity, rounds, rng.Perm(fp.Capacity), opts.Observers)
		if benchErr != nil {
			span.SetStatus(codes.Error, benchErr.Error())

			return result, benchErr
		}

		result.Samples = append(result.Samples, samples...)
	}

	result.Duration = time.Since(started)

	r.logger.InfoContext(ctx, "bench finished",
		"capacities", len(plan.Accepted),
		"skipped", len(plan.Rejected),
		"samples", len(result.Samples),
		"duration", result.Duration,
	)

	return result, nil
}

func (r *Runner) benchCapacity(
	ctx context.Context, capacity, rounds int, keys []int, observers func(string) pool.Observer,
) ([]Sample, error) {
	ctx, span := r.tracer.Start(ctx, "workload.bench.capacity", trace.WithAttributes(
		attribute.Int("capacity", capacity),
	))
	defer span.End()

	mapOpts := []ordered.Option{}
	poolOpts := []pool.Option[payload]{}

	if observers != nil {
		if o := observers(ContainerMap); o != nil {
			mapOpts = append(mapOpts, ordered.WithObserver(o))
		}

		if o := observers(ContainerPool); o != nil {
			poolOpts = append(poolOpts, pool.WithObserver[payload](o))
		}
	}

	m := ordered.NewMap[int, int](capacity, mapOpts...)
	p := pool.New[payload](capacity, poolOpts...)
	ptrs := make([]*payload, capacity)

	mapFootprint := m.Stats().FootprintBytes()
	poolFootprint := p.Stats().FootprintBytes()

	samples := []Sample{
		{Container: ContainerMap, Op: OpInsert, Capacity: capacity, Footprint: mapFootprint},
		{Container: ContainerMap, Op: OpFind, Capacity: capacity, Footprint: mapFootprint},
		{Container: ContainerMap, Op: OpErase, Capacity: capacity, Footprint: mapFootprint},
		{Container: ContainerPool, Op: OpAllocate, Capacity: capacity, Footprint: poolFootprint},
		{Container: ContainerPool, Op: OpRelease, Capacity: capacity, Footprint: poolFootprint},
	}

	for round := range rounds {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("bench cancelled at capacity %d round %d: %w", capacity, round, err)
		}

		steps := []func() error{
			func() error { return mapInsertAll(m, keys) },
			func() error { return mapFindAll(m, keys) },
			func() error { return mapEraseAll(m, keys) },
			func() error { return poolFill(p, ptrs) },
			func() error { return poolDrain(p, ptrs) },
		}

		for i, step := range steps {
			t0 := time.Now()

			stepErr := step()
			elapsed := time.Since(t0)

			if stepErr != nil {
				r.recordFailure(ctx, samples[i].Op, stepErr)

				return nil, fmt.Errorf("%s %s at capacity %d: %w", samples[i].Container, samples[i].Op, capacity, stepErr)
			}

			samples[i].Ops += capacity
			samples[i].Total += elapsed

			r.record(ctx, samples[i].Op, observability.StatusOK, t0)
		}

		if leaked := container.Drain(m, p); leaked != 0 {
			return nil, fmt.Errorf("capacity %d round %d: %d %w", capacity, round, leaked, ErrLeakedSlots)
		}
	}

	return samples, nil
}

func mapInsertAll(m *ordered.Map[int, int], keys []int) error {
	for _, k := range keys {
		_, _, err := m.Insert(k, k)
		if err != nil {
			return err
		}
	}

	return nil
}

func mapFindAll(m *ordered.Map[int, int], keys []int) error {
	for _, k := range keys {
		if _, ok := m.Get(k); !ok {
			return fmt.Errorf("key %d: %w", k, ErrKeyLost)
		}
	}

	return nil
}

func mapEraseAll(m *ordered.Map[int, int], keys []int) error {
	for _, k := range keys {
		if !m.Erase(k) {
			return fmt.Errorf("key %d: %w", k, ErrKeyLost)
		}
	}

	return nil
}

func poolFill(p *pool.Pool[payload], ptrs []*payload) error {
	for i := range ptrs {
		ptr, err := p.AllocateValue(payload{id: i})
		if err != nil {
			return err
		}

		ptrs[i] = ptr
	}

	return nil
}

func poolDrain(p *pool.Pool[payload], ptrs []*payload) error {
	for i, ptr := range ptrs {
		err := p.Release(ptr)
		if err != nil {
			return err
		}

		ptrs[i] = nil
	}

	return nil
}
