package pool_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

const (
	// smallCapacity is the pool size used by exhaustion scenarios.
	smallCapacity = 3

	// sweepMax bounds the capacities checked by the capacity invariant test.
	sweepMax = 70
)

type record struct {
	id   int
	name string
}

// countingObserver records pool events.
type countingObserver struct {
	allocated int
	released  int
	failed    []error
	live      int
}

func (o *countingObserver) Allocated(live int) { o.allocated++; o.live = live }
func (o *countingObserver) Released(live int)  { o.released++; o.live = live }
func (o *countingObserver) Failed(kind error)  { o.failed = append(o.failed, kind) }

func TestPool_ExhaustionReusesFreedSlot(t *testing.T) {
	t.Parallel()

	p := pool.New[record](smallCapacity)

	ptrs := make([]*record, 0, smallCapacity)

	for i := range smallCapacity {
		ptr, err := p.AllocateValue(record{id: i})
		require.NoError(t, err)

		ptrs = append(ptrs, ptr)
	}

	assert.True(t, p.Full())

	ptr, err := p.Allocate()
	require.ErrorIs(t, err, fault.ErrPoolExhausted)
	assert.Nil(t, ptr)
	assert.Equal(t, smallCapacity, p.Len())

	require.NoError(t, p.Release(ptrs[1]))

	reused, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, ptrs[1], reused)
	assert.Equal(t, record{}, *reused)
}

func TestPool_CapacityInvariant(t *testing.T) {
	t.Parallel()

	for n := 1; n <= sweepMax; n++ {
		p := pool.New[int](n)

		var last *int

		for range n {
			ptr, err := p.Allocate()
			require.NoError(t, err)

			last = ptr
		}

		_, err := p.Allocate()
		require.ErrorIs(t, err, fault.ErrPoolExhausted, "capacity %d", n)

		require.NoError(t, p.Release(last))

		_, err = p.Allocate()
		require.NoError(t, err)

		_, err = p.Allocate()
		require.ErrorIs(t, err, fault.ErrPoolExhausted, "capacity %d", n)
	}
}

func TestPool_IdentityRoundTrip(t *testing.T) {
	t.Parallel()

	p := pool.New[record](smallCapacity)

	ptr, err := p.AllocateValue(record{id: 7, name: "seven"})
	require.NoError(t, err)

	idx, ok := p.Index(ptr)
	require.True(t, ok)
	assert.Same(t, ptr, p.At(idx))
	assert.True(t, p.IsLive(idx))

	require.NoError(t, p.Release(ptr))

	assert.True(t, p.IsInPool(ptr))
	assert.False(t, p.IsLive(idx))
	assert.Equal(t, smallCapacity, p.Available())
}

func TestPool_ReleaseForeignPointer(t *testing.T) {
	t.Parallel()

	p := pool.New[record](smallCapacity)
	_, err := p.Allocate()
	require.NoError(t, err)

	foreign := &record{}

	require.ErrorIs(t, p.Release(foreign), fault.ErrNotInPool)
	require.ErrorIs(t, p.Release(nil), fault.ErrNotInPool)
	assert.False(t, p.IsInPool(foreign))
	assert.Equal(t, 1, p.Len())
}

func TestPool_DoubleRelease(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	p := pool.New(smallCapacity, pool.WithObserver[int](obs))

	ptr, err := p.Allocate()
	require.NoError(t, err)
	require.NoError(t, p.Release(ptr))

	err = p.Release(ptr)
	require.ErrorIs(t, err, fault.ErrDoubleRelease)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, []error{fault.ErrDoubleRelease}, obs.failed)
	assert.Equal(t, int64(1), p.Stats().Releases)
}

func TestPool_PanicHandlerAborts(t *testing.T) {
	t.Parallel()

	p := pool.New(1, pool.WithHandler[int](fault.PanicHandler{}))

	_, err := p.Allocate()
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = p.Allocate()
	})
	assert.Equal(t, 1, p.Len())
}

func TestPool_DestructorRunsOnRelease(t *testing.T) {
	t.Parallel()

	var destroyed []int

	p := pool.New(smallCapacity, pool.WithDestructor(func(r *record) {
		destroyed = append(destroyed, r.id)
	}))

	a, err := p.AllocateValue(record{id: 1})
	require.NoError(t, err)
	_, err = p.AllocateValue(record{id: 2})
	require.NoError(t, err)
	_, err = p.AllocateValue(record{id: 3})
	require.NoError(t, err)

	require.NoError(t, p.Release(a))
	assert.Equal(t, []int{1}, destroyed)

	p.ReleaseAll()
	assert.Equal(t, []int{1, 2, 3}, destroyed)
	assert.True(t, p.Empty())
	assert.Equal(t, smallCapacity, p.Available())
}

func TestPool_AllIteratesLiveSlots(t *testing.T) {
	t.Parallel()

	p := pool.New[int](5)

	ptrs := make([]*int, 5)
	for i := range ptrs {
		ptr, err := p.AllocateValue(i * 10)
		require.NoError(t, err)

		ptrs[i] = ptr
	}

	require.NoError(t, p.Release(ptrs[1]))
	require.NoError(t, p.Release(ptrs[3]))

	var (
		indices []int
		values  []int
	)

	for i, v := range p.All() {
		indices = append(indices, i)
		values = append(values, *v)
	}

	assert.Equal(t, []int{0, 2, 4}, indices)
	assert.Equal(t, []int{0, 20, 40}, values)
}

func TestPool_HintRevalidated(t *testing.T) {
	t.Parallel()

	p := pool.New[int](4)

	ptrs := make([]*int, 4)
	for i := range ptrs {
		ptr, err := p.Allocate()
		require.NoError(t, err)

		ptrs[i] = ptr
	}

	require.NoError(t, p.Release(ptrs[2]))
	require.NoError(t, p.Release(ptrs[0]))

	first, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, ptrs[0], first)

	second, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, ptrs[2], second)
	assert.True(t, p.Full())
}

func TestPool_StatsAndObserver(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	p := pool.New(2, pool.WithObserver[int](obs))

	a, err := p.Allocate()
	require.NoError(t, err)
	_, err = p.Allocate()
	require.NoError(t, err)
	_, err = p.Allocate()
	require.Error(t, err)
	require.NoError(t, p.Release(a))

	s := p.Stats()
	assert.Equal(t, int64(2), s.Allocations)
	assert.Equal(t, int64(1), s.Releases)
	assert.Equal(t, int64(1), s.Failures)
	assert.Equal(t, 1, s.Live)
	assert.Equal(t, 2, s.HighWater)
	assert.InDelta(t, 0.5, s.Utilization(), 1e-9)
	assert.Equal(t, uint64(16), s.FootprintBytes())

	assert.Equal(t, 2, obs.allocated)
	assert.Equal(t, 1, obs.released)
	assert.Equal(t, 1, obs.live)
	assert.Equal(t, []error{fault.ErrPoolExhausted}, obs.failed)
}

func TestPool_CountFailureSkipsHandler(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	p := pool.New(1, pool.WithObserver[int](obs), pool.WithHandler[int](fault.PanicHandler{}))

	assert.NotPanics(t, func() { p.CountFailure(fault.ErrTreeFull) })

	assert.Equal(t, int64(1), p.Stats().Failures)
	assert.Equal(t, []error{fault.ErrTreeFull}, obs.failed)
	assert.Equal(t, 0, p.Len())
}

func TestPool_ZeroCapacity(t *testing.T) {
	t.Parallel()

	p := pool.New[int](0)

	_, err := p.Allocate()
	require.ErrorIs(t, err, fault.ErrPoolExhausted)
	assert.True(t, p.Empty())
	assert.True(t, p.Full())
	assert.Empty(t, slices.Collect(func(yield func(int) bool) {
		for i := range p.All() {
			if !yield(i) {
				return
			}
		}
	}))
}

func TestPool_ConstructionPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "pool: negative capacity", func() { pool.New[int](-1) })
	assert.PanicsWithValue(t, "pool: zero-sized element type", func() { pool.New[struct{}](1) })
}
