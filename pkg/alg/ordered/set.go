package ordered

import (
	"cmp"
	"iter"
	"slices"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// Set is a fixed-capacity ordered set of unique keys.
type Set[K any] struct {
	tree *Tree[K, K]
}

// NewSet returns an empty set of ordered keys holding at most capacity keys.
func NewSet[K cmp.Ordered](capacity int, opts ...Option) *Set[K] {
	return NewSetFunc(capacity, cmp.Less[K], opts...)
}

// NewSetFunc returns an empty set ordered by less.
func NewSetFunc[K any](capacity int, less func(a, b K) bool, opts ...Option) *Set[K] {
	return &Set[K]{
		tree: NewTree(capacity, identity[K], less, opts...),
	}
}

func identity[K any](k *K) K {
	return *k
}

// SetIterator is a position in a [Set].
type SetIterator[K any] struct {
	it Iterator[K, K]
}

// Valid reports whether the iterator points at a key.
func (it SetIterator[K]) Valid() bool { return it.it.Valid() }

// Key returns the key. It panics at End.
func (it SetIterator[K]) Key() K { return it.it.n.value }

// Next returns the iterator to the following key.
func (it SetIterator[K]) Next() SetIterator[K] { return SetIterator[K]{it.it.Next()} }

// Prev returns the iterator to the preceding key.
func (it SetIterator[K]) Prev() SetIterator[K] { return SetIterator[K]{it.it.Prev()} }

// Equal reports whether both iterators denote the same position.
func (it SetIterator[K]) Equal(other SetIterator[K]) bool { return it.it.Equal(other.it) }

func (s *Set[K]) wrap(it Iterator[K, K]) SetIterator[K] {
	return SetIterator[K]{it: it}
}

// Insert adds key unless present. It returns the iterator to key and
// whether it was added. On a full set it reports [fault.ErrTreeFull].
func (s *Set[K]) Insert(key K) (SetIterator[K], bool, error) {
	it, ok, err := s.tree.Insert(key)

	return s.wrap(it), ok, err
}

// Find returns the iterator to key, or End.
func (s *Set[K]) Find(key K) SetIterator[K] { return s.wrap(s.tree.Find(key)) }

// Contains reports whether key is present.
func (s *Set[K]) Contains(key K) bool { return s.tree.Contains(key) }

// Count returns 1 if key is present and 0 otherwise.
func (s *Set[K]) Count(key K) int { return s.tree.Count(key) }

// Erase removes key and reports whether it was present.
func (s *Set[K]) Erase(key K) bool { return s.tree.Erase(key) }

// EraseAt removes the key at it and returns the following iterator.
func (s *Set[K]) EraseAt(it SetIterator[K]) SetIterator[K] { return s.wrap(s.tree.EraseAt(it.it)) }

// EraseRange removes the keys in [first, last).
func (s *Set[K]) EraseRange(first, last SetIterator[K]) (SetIterator[K], error) {
	it, err := s.tree.EraseRange(first.it, last.it)

	return s.wrap(it), err
}

// LowerBound returns the first key not less than key.
func (s *Set[K]) LowerBound(key K) SetIterator[K] { return s.wrap(s.tree.LowerBound(key)) }

// UpperBound returns the first key greater than key.
func (s *Set[K]) UpperBound(key K) SetIterator[K] { return s.wrap(s.tree.UpperBound(key)) }

// EqualRange returns the range holding key.
func (s *Set[K]) EqualRange(key K) (first, last SetIterator[K]) {
	lo, hi := s.tree.EqualRange(key)

	return s.wrap(lo), s.wrap(hi)
}

// Begin returns the iterator to the smallest key.
func (s *Set[K]) Begin() SetIterator[K] { return s.wrap(s.tree.Begin()) }

// End returns the past-the-end iterator.
func (s *Set[K]) End() SetIterator[K] { return s.wrap(s.tree.End()) }

// Last returns the iterator to the largest key.
func (s *Set[K]) Last() SetIterator[K] { return s.wrap(s.tree.Last()) }

// All iterates keys in increasing order.
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.tree.All() {
			if !yield(*k) {
				return
			}
		}
	}
}

// Backward iterates keys in decreasing order.
func (s *Set[K]) Backward() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.tree.Backward() {
			if !yield(*k) {
				return
			}
		}
	}
}

// Assign replaces the contents with the keys from seq. If seq holds more
// distinct keys than the capacity, [fault.ErrTreeFull] is reported and the
// set is left unchanged.
func (s *Set[K]) Assign(seq iter.Seq[K]) error {
	keys := slices.Collect(seq)

	if s.tree.distinct(keys) > s.Cap() {
		s.tree.nodes.CountFailure(fault.ErrTreeFull)

		return fault.Report(s.tree.handler, fault.ErrTreeFull, "ordered.Set.Assign")
	}

	s.Clear()

	for _, k := range keys {
		if _, _, err := s.Insert(k); err != nil {
			return err
		}
	}

	return nil
}

// AssignRange replaces the contents with the keys in [first, last) of
// another set. A reversed range reports [fault.ErrIteratorInvalid], a range
// longer than the capacity reports [fault.ErrTreeFull]; in both cases the
// set is left unchanged.
func (s *Set[K]) AssignRange(first, last SetIterator[K]) error {
	src := first.it.tree
	if src == nil || src == s.tree {
		return fault.Report(s.tree.handler, fault.ErrIteratorInvalid, "ordered.Set.AssignRange")
	}

	n, err := src.Distance(first.it, last.it)
	if err != nil {
		return err
	}

	if n > s.Cap() {
		s.tree.nodes.CountFailure(fault.ErrTreeFull)

		return fault.Report(s.tree.handler, fault.ErrTreeFull, "ordered.Set.AssignRange")
	}

	s.Clear()

	for it := first; !it.Equal(last); it = it.Next() {
		if _, _, err := s.Insert(it.Key()); err != nil {
			return err
		}
	}

	return nil
}

// Clear removes every key.
func (s *Set[K]) Clear() { s.tree.Clear() }

// Len returns the number of keys.
func (s *Set[K]) Len() int { return s.tree.Len() }

// Cap returns the maximum number of keys.
func (s *Set[K]) Cap() int { return s.tree.Cap() }

// Available returns the number of keys that can still be added.
func (s *Set[K]) Available() int { return s.tree.Available() }

// Empty reports whether the set holds no key.
func (s *Set[K]) Empty() bool { return s.tree.Empty() }

// Full reports whether the set is at capacity.
func (s *Set[K]) Full() bool { return s.tree.Full() }

// Validate checks the structural invariants of the underlying tree.
func (s *Set[K]) Validate() error { return s.tree.Validate() }

// Stats returns the node pool statistics.
func (s *Set[K]) Stats() pool.Stats { return s.tree.Stats() }

// Tree exposes the underlying tree for diagnostics.
func (s *Set[K]) Tree() *Tree[K, K] { return s.tree }

// EqualSets reports whether a and b hold the same keys.
func EqualSets[K any](a, b *Set[K]) bool {
	if a.Len() != b.Len() {
		return false
	}

	next, stop := iter.Pull(b.tree.All())
	defer stop()

	for ka := range a.tree.All() {
		kb, ok := next()
		if !ok || a.tree.less(*ka, *kb) || a.tree.less(*kb, *ka) {
			return false
		}
	}

	return true
}
