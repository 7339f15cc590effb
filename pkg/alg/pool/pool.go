// Package pool provides a fixed-capacity object pool backed by a single
// slot array allocated at construction.
//
// Live slots are tracked by a [bitset.Tracker]. Allocation constructs the
// value in place (zero value or a copy of an initial value) and release
// destroys it in place, so the backing array never grows or moves.
package pool

import (
	"iter"
	"unsafe"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/bitset"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/safeconv"
)

// noFree marks an unknown free-slot hint.
const noFree = -1

// Observer receives pool lifecycle events. live is the number of live slots
// after the event.
type Observer interface {
	Allocated(live int)
	Released(live int)
	Failed(kind error)
}

// Pool is a fixed-capacity arena of T values.
// It is not safe for concurrent use.
type Pool[T any] struct {
	slots     []T
	inUse     *bitset.Tracker
	nextFree  int // Hint; re-validated against inUse before use.
	allocated int
	stride    uintptr

	handler    fault.Handler
	destructor func(*T)
	observer   Observer

	allocations int64
	releases    int64
	failures    int64
	highWater   int
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithHandler sets the failure handler. Defaults to [fault.Default].
func WithHandler[T any](h fault.Handler) Option[T] {
	return func(p *Pool[T]) {
		p.handler = h
	}
}

// WithDestructor sets a hook run on a value just before its slot is freed.
func WithDestructor[T any](fn func(*T)) Option[T] {
	return func(p *Pool[T]) {
		p.destructor = fn
	}
}

// WithObserver attaches an observer notified on every allocation, release
// and failure.
func WithObserver[T any](o Observer) Option[T] {
	return func(p *Pool[T]) {
		p.observer = o
	}
}

// New creates a pool holding at most capacity values.
// It panics if capacity is negative or T has zero size.
func New[T any](capacity int, opts ...Option[T]) *Pool[T] {
	if capacity < 0 {
		panic("pool: negative capacity")
	}

	var zero T

	stride := unsafe.Sizeof(zero)
	if stride == 0 {
		panic("pool: zero-sized element type")
	}

	p := &Pool[T]{
		slots:    make([]T, capacity),
		inUse:    bitset.New(safeconv.MustIntToUint(capacity)),
		nextFree: noFree,
		stride:   stride,
	}

	if capacity > 0 {
		p.nextFree = 0
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Allocate constructs a zero value in a free slot and returns its address.
// On a full pool it reports [fault.ErrPoolExhausted] and returns nil.
func (p *Pool[T]) Allocate() (*T, error) {
	var zero T

	return p.allocate(zero, "pool.Allocate")
}

// AllocateValue copies v into a free slot and returns its address.
// On a full pool it reports [fault.ErrPoolExhausted] and returns nil.
func (p *Pool[T]) AllocateValue(v T) (*T, error) {
	return p.allocate(v, "pool.AllocateValue")
}

func (p *Pool[T]) allocate(v T, op string) (*T, error) {
	if p.allocated >= len(p.slots) {
		return nil, p.fail(fault.ErrPoolExhausted, op)
	}

	idx := p.nextFree
	if idx == noFree || p.inUse.Test(safeconv.MustIntToUint(idx)) {
		idx = p.firstFree()
	}

	slot := &p.slots[idx]
	*slot = v

	p.inUse.Set(safeconv.MustIntToUint(idx))
	p.allocated++
	p.nextFree = p.firstFree()

	p.allocations++
	p.highWater = max(p.highWater, p.allocated)

	if p.observer != nil {
		p.observer.Allocated(p.allocated)
	}

	return slot, nil
}

func (p *Pool[T]) firstFree() int {
	pos := p.inUse.FindFirst(false)
	if pos == bitset.NotFound {
		return noFree
	}

	return safeconv.MustUintToInt(pos)
}

// Release destroys the value at ptr and returns its slot to the pool.
//
// A pointer outside the backing array or not aligned to a slot reports
// [fault.ErrNotInPool]. Releasing a free slot reports
// [fault.ErrDoubleRelease]. In both cases the pool is left unchanged.
func (p *Pool[T]) Release(ptr *T) error {
	idx, ok := p.Index(ptr)
	if !ok {
		return p.fail(fault.ErrNotInPool, "pool.Release")
	}

	if !p.inUse.Test(safeconv.MustIntToUint(idx)) {
		return p.fail(fault.ErrDoubleRelease, "pool.Release")
	}

	p.destroy(idx)
	p.inUse.Reset(safeconv.MustIntToUint(idx))
	p.allocated--
	p.nextFree = idx
	p.releases++

	if p.observer != nil {
		p.observer.Released(p.allocated)
	}

	return nil
}

func (p *Pool[T]) fail(kind error, op string) error {
	p.CountFailure(kind)

	return fault.Report(p.handler, kind, op)
}

// CountFailure records a failure of the given kind in Stats and notifies
// the observer without invoking the handler. Containers that detect
// exhaustion before calling Allocate use it to keep pool accounting
// complete while reporting their own failure kind.
func (p *Pool[T]) CountFailure(kind error) {
	p.failures++

	if p.observer != nil {
		p.observer.Failed(kind)
	}
}

func (p *Pool[T]) destroy(idx int) {
	slot := &p.slots[idx]

	if p.destructor != nil {
		p.destructor(slot)
	}

	var zero T

	*slot = zero
}

// ReleaseAll destroys every live value and frees all slots.
func (p *Pool[T]) ReleaseAll() {
	released := 0

	for pos := range p.inUse.All() {
		p.destroy(safeconv.MustUintToInt(pos))
		released++
	}

	p.inUse.ResetAll()
	p.allocated = 0
	p.releases += int64(released)

	p.nextFree = noFree
	if len(p.slots) > 0 {
		p.nextFree = 0
	}

	if released > 0 && p.observer != nil {
		p.observer.Released(0)
	}
}

// Index returns the slot index of ptr. ok is false if ptr does not address
// a slot of this pool.
func (p *Pool[T]) Index(ptr *T) (idx int, ok bool) {
	if ptr == nil || len(p.slots) == 0 {
		return 0, false
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.slots)))
	addr := uintptr(unsafe.Pointer(ptr))

	if addr < base {
		return 0, false
	}

	off := addr - base
	if off%p.stride != 0 {
		return 0, false
	}

	idx = safeconv.MustUintptrToInt(off / p.stride)
	if idx >= len(p.slots) {
		return 0, false
	}

	return idx, true
}

// IsInPool reports whether ptr addresses a slot of this pool, live or not.
func (p *Pool[T]) IsInPool(ptr *T) bool {
	_, ok := p.Index(ptr)

	return ok
}

// At returns the address of slot i, or nil if i is out of range.
func (p *Pool[T]) At(i int) *T {
	if i < 0 || i >= len(p.slots) {
		return nil
	}

	return &p.slots[i]
}

// IsLive reports whether slot i currently holds a value.
func (p *Pool[T]) IsLive(i int) bool {
	if i < 0 {
		return false
	}

	return p.inUse.Test(safeconv.MustIntToUint(i))
}

// All iterates live slots in increasing index order.
func (p *Pool[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for pos := range p.inUse.All() {
			i := safeconv.MustUintToInt(pos)
			if !yield(i, &p.slots[i]) {
				return
			}
		}
	}
}

// Len returns the number of live values.
func (p *Pool[T]) Len() int { return p.allocated }

// Cap returns the pool capacity.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Available returns the number of free slots.
func (p *Pool[T]) Available() int { return len(p.slots) - p.allocated }

// Empty reports whether no slot is live.
func (p *Pool[T]) Empty() bool { return p.allocated == 0 }

// Full reports whether every slot is live.
func (p *Pool[T]) Full() bool { return p.allocated == len(p.slots) }

// Clear releases every live value. It is an alias of ReleaseAll.
func (p *Pool[T]) Clear() { p.ReleaseAll() }

// SlotSize returns the size in bytes of one slot.
func (p *Pool[T]) SlotSize() uintptr { return p.stride }
