package workload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

// Operation names used in results and metrics.
const (
	OpInsert   = "insert"
	OpErase    = "erase"
	OpFind     = "find"
	OpAllocate = "allocate"
	OpRelease  = "release"
)

// VerifyOptions configures a verification run.
type VerifyOptions struct {
	Handler    fault.Handler // Nil uses fault.Default.
	Observer   pool.Observer // Optional node pool observer.
	Capacity   int
	Operations int
	KeySpace   int
	Seed       int64
	EraseRatio float64
}

func (o VerifyOptions) validate() error {
	switch {
	case o.Capacity <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, o.Capacity)
	case o.Operations <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidOperations, o.Operations)
	case o.KeySpace <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidKeySpace, o.KeySpace)
	case o.EraseRatio < 0 || o.EraseRatio > 1:
		return fmt.Errorf("%w: %v", ErrInvalidEraseRatio, o.EraseRatio)
	}

	return nil
}

// Mismatch describes the first step where the set diverged from the model.
type Mismatch struct {
	Reason   string
	Op       string
	Expected []int
	Actual   []int
	Step     int
	Key      int
}

// VerifyResult summarises a verification run.
type VerifyResult struct {
	Mismatch   *Mismatch // Nil when every step matched.
	Stats      pool.Stats
	Duration   time.Duration
	Steps      int
	Inserts    int
	Duplicates int
	Rejected   int // Inserts refused because the set was full.
	Erases     int
	Misses     int // Erases of absent keys.
	MaxLen     int
	FinalLen   int
	Height     int
}

// Passed reports whether the run completed without a mismatch.
func (r VerifyResult) Passed() bool { return r.Mismatch == nil }

// Verify runs a seeded random insert/erase workload against an [ordered.Set]
// and cross-checks it with a sorted-slice model after every step: the tree
// must validate and its in-order keys must equal the model.
func (r *Runner) Verify(ctx context.Context, opts VerifyOptions) (VerifyResult, error) {
	err := opts.validate()
	if err != nil {
		return VerifyResult{}, err
	}

	ctx, span := r.tracer.Start(ctx, "workload.verify", trace.WithAttributes(
		attribute.Int("capacity", opts.Capacity),
		attribute.Int("operations", opts.Operations),
		attribute.Int("key_space", opts.KeySpace),
		attribute.Int64("seed", opts.Seed),
	))
	defer span.End()

	ctx = observability.WithContainer(ctx, "set")

	setOpts := []ordered.Option{ordered.WithHandler(opts.Handler)}
	if opts.Observer != nil {
		setOpts = append(setOpts, ordered.WithObserver(opts.Observer))
	}

	var (
		set     = ordered.NewSet[int](opts.Capacity, setOpts...)
		model   sortedModel
		rng     = newRand(opts.Seed)
		result  VerifyResult
		started = time.Now()
	)

	for step := range opts.Operations {
		cancelErr := checkCancel(ctx, step)
		if cancelErr != nil {
			span.SetStatus(codes.Error, "cancelled")

			return result, fmt.Errorf("verify cancelled at step %d: %w", step, cancelErr)
		}

		key := rng.IntN(opts.KeySpace)
		op := OpInsert

		var mismatch *Mismatch
		if rng.Float64() < opts.EraseRatio {
			op = OpErase
			mismatch = r.verifyErase(ctx, set, &model, key, &result)
		} else {
			mismatch = r.verifyInsert(ctx, set, &model, key, opts.Capacity, &result)
		}

		if mismatch == nil {
			mismatch = compare(set, &model)
		}

		result.Steps++
		result.MaxLen = max(result.MaxLen, set.Len())

		if mismatch != nil {
			mismatch.Op = op
			mismatch.Step = step
			mismatch.Key = key
			result.Mismatch = mismatch

			span.SetStatus(codes.Error, mismatch.Reason)
			r.logger.ErrorContext(ctx, "verification mismatch",
				"step", step, "op", mismatch.Op, "key", key, "reason", mismatch.Reason)

			break
		}
	}

	result.Duration = time.Since(started)
	result.FinalLen = set.Len()
	result.Height = set.Tree().Height()
	result.Stats = set.Stats()

	span.SetAttributes(
		attribute.Int("steps", result.Steps),
		attribute.Int("final_len", result.FinalLen),
		attribute.Bool("passed", result.Passed()),
	)

	r.logger.InfoContext(ctx, "verification finished",
		"steps", result.Steps,
		"passed", result.Passed(),
		"final_len", result.FinalLen,
		"height", result.Height,
		"duration", result.Duration,
	)

	return result, nil
}

func (r *Runner) verifyInsert(
	ctx context.Context, set *ordered.Set[int], model *sortedModel, key, capacity int, result *VerifyResult,
) *Mismatch {
	wasPresent := model.contains(key)
	wasFull := model.len() == capacity

	started := time.Now()
	inserted, err := guardedInsert(set, key)

	switch {
	case wasPresent:
		r.record(ctx, OpInsert, observability.StatusMiss, started)
		result.Duplicates++

		if inserted || err != nil {
			return &Mismatch{Reason: fmt.Sprintf("duplicate insert: inserted=%t err=%v", inserted, err)}
		}
	case wasFull:
		r.record(ctx, OpInsert, observability.StatusError, started)
		result.Rejected++

		if kind := fault.Of(err); kind != nil {
			r.recordFailure(ctx, OpInsert, kind)
		}

		if inserted || !errors.Is(err, fault.ErrTreeFull) {
			return &Mismatch{Reason: fmt.Sprintf("insert into full set: inserted=%t err=%v", inserted, err)}
		}
	default:
		r.record(ctx, OpInsert, observability.StatusOK, started)
		result.Inserts++

		if !inserted || err != nil {
			return &Mismatch{Reason: fmt.Sprintf("insert of new key: inserted=%t err=%v", inserted, err)}
		}

		model.insert(key)
	}

	return nil
}

func (r *Runner) verifyErase(
	ctx context.Context, set *ordered.Set[int], model *sortedModel, key int, result *VerifyResult,
) *Mismatch {
	started := time.Now()
	erased := set.Erase(key)
	expected := model.erase(key)

	status := observability.StatusOK
	if !erased {
		status = observability.StatusMiss
	}

	r.record(ctx, OpErase, status, started)

	if expected {
		result.Erases++
	} else {
		result.Misses++
	}

	if erased != expected {
		return &Mismatch{Reason: fmt.Sprintf("erase returned %t, model expected %t", erased, expected)}
	}

	return nil
}

func guardedInsert(set *ordered.Set[int], key int) (inserted bool, err error) {
	defer fault.Recover(&err)

	_, inserted, err = set.Insert(key)

	return inserted, err
}

func compare(set *ordered.Set[int], model *sortedModel) *Mismatch {
	err := set.Validate()
	if err != nil {
		return &Mismatch{
			Reason:   err.Error(),
			Expected: model.snapshot(),
			Actual:   slices.Collect(set.All()),
		}
	}

	actual := slices.Collect(set.All())
	if !slices.Equal(actual, model.keys) {
		return &Mismatch{
			Reason:   "in-order keys differ from model",
			Expected: model.snapshot(),
			Actual:   actual,
		}
	}

	return nil
}
