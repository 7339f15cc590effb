package ordered

import (
	"cmp"
	"iter"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// Entry is a key/value pair stored in a [Map].
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Map is a fixed-capacity ordered map with unique keys.
type Map[K, V any] struct {
	tree *Tree[K, Entry[K, V]]
}

// NewMap returns an empty map of ordered keys holding at most capacity entries.
func NewMap[K cmp.Ordered, V any](capacity int, opts ...Option) *Map[K, V] {
	return NewMapFunc[K, V](capacity, cmp.Less[K], opts...)
}

// NewMapFunc returns an empty map ordered by less.
func NewMapFunc[K, V any](capacity int, less func(a, b K) bool, opts ...Option) *Map[K, V] {
	return &Map[K, V]{
		tree: NewTree(capacity, entryKey[K, V], less, opts...),
	}
}

func entryKey[K, V any](e *Entry[K, V]) K {
	return e.Key
}

// MapIterator is a position in a [Map]. The key is read-only.
type MapIterator[K, V any] struct {
	it Iterator[K, Entry[K, V]]
}

// Valid reports whether the iterator points at an entry.
func (it MapIterator[K, V]) Valid() bool { return it.it.Valid() }

// Key returns the entry key. It panics at End.
func (it MapIterator[K, V]) Key() K { return it.it.n.value.Key }

// Value returns the mapped value. It panics at End.
func (it MapIterator[K, V]) Value() V { return it.it.n.value.Value }

// ValuePtr returns a pointer to the mapped value, or nil at End.
func (it MapIterator[K, V]) ValuePtr() *V {
	if it.it.n == nil {
		return nil
	}

	return &it.it.n.value.Value
}

// Next returns the iterator to the following entry.
func (it MapIterator[K, V]) Next() MapIterator[K, V] { return MapIterator[K, V]{it.it.Next()} }

// Prev returns the iterator to the preceding entry.
func (it MapIterator[K, V]) Prev() MapIterator[K, V] { return MapIterator[K, V]{it.it.Prev()} }

// Equal reports whether both iterators denote the same position.
func (it MapIterator[K, V]) Equal(other MapIterator[K, V]) bool { return it.it.Equal(other.it) }

func (m *Map[K, V]) wrap(it Iterator[K, Entry[K, V]]) MapIterator[K, V] {
	return MapIterator[K, V]{it: it}
}

// Insert adds key with value unless key is present. It returns the iterator
// to the entry for key and whether an entry was added. On a full map it
// reports [fault.ErrTreeFull].
func (m *Map[K, V]) Insert(key K, value V) (MapIterator[K, V], bool, error) {
	it, ok, err := m.tree.Insert(Entry[K, V]{Key: key, Value: value})

	return m.wrap(it), ok, err
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if n := m.tree.find(key); n != nil {
		return n.value.Value, true
	}

	var zero V

	return zero, false
}

// Ref returns a pointer to the value for key, inserting a zero value first
// if key is absent. On a full map it reports [fault.ErrTreeFull].
func (m *Map[K, V]) Ref(key K) (*V, error) {
	if n := m.tree.find(key); n != nil {
		return &n.value.Value, nil
	}

	it, _, err := m.tree.Insert(Entry[K, V]{Key: key})
	if err != nil {
		return nil, err
	}

	return &it.n.value.Value, nil
}

// Set inserts key or overwrites its value.
func (m *Map[K, V]) Set(key K, value V) error {
	p, err := m.Ref(key)
	if err != nil {
		return err
	}

	*p = value

	return nil
}

// At returns a pointer to the value for key. A missing key reports
// [fault.ErrOutOfBounds].
func (m *Map[K, V]) At(key K) (*V, error) {
	n := m.tree.find(key)
	if n == nil {
		return nil, fault.Report(m.tree.handler, fault.ErrOutOfBounds, "ordered.Map.At")
	}

	return &n.value.Value, nil
}

// Find returns the iterator to key, or End.
func (m *Map[K, V]) Find(key K) MapIterator[K, V] { return m.wrap(m.tree.Find(key)) }

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool { return m.tree.Contains(key) }

// Count returns 1 if key is present and 0 otherwise.
func (m *Map[K, V]) Count(key K) int { return m.tree.Count(key) }

// Erase removes key and reports whether it was present.
func (m *Map[K, V]) Erase(key K) bool { return m.tree.Erase(key) }

// EraseAt removes the entry at it and returns the following iterator.
func (m *Map[K, V]) EraseAt(it MapIterator[K, V]) MapIterator[K, V] {
	return m.wrap(m.tree.EraseAt(it.it))
}

// EraseRange removes the entries in [first, last).
func (m *Map[K, V]) EraseRange(first, last MapIterator[K, V]) (MapIterator[K, V], error) {
	it, err := m.tree.EraseRange(first.it, last.it)

	return m.wrap(it), err
}

// LowerBound returns the first entry whose key is not less than key.
func (m *Map[K, V]) LowerBound(key K) MapIterator[K, V] { return m.wrap(m.tree.LowerBound(key)) }

// UpperBound returns the first entry whose key is greater than key.
func (m *Map[K, V]) UpperBound(key K) MapIterator[K, V] { return m.wrap(m.tree.UpperBound(key)) }

// EqualRange returns the range of entries with key.
func (m *Map[K, V]) EqualRange(key K) (first, last MapIterator[K, V]) {
	lo, hi := m.tree.EqualRange(key)

	return m.wrap(lo), m.wrap(hi)
}

// Begin returns the iterator to the smallest key.
func (m *Map[K, V]) Begin() MapIterator[K, V] { return m.wrap(m.tree.Begin()) }

// End returns the past-the-end iterator.
func (m *Map[K, V]) End() MapIterator[K, V] { return m.wrap(m.tree.End()) }

// Last returns the iterator to the largest key.
func (m *Map[K, V]) Last() MapIterator[K, V] { return m.wrap(m.tree.Last()) }

// All iterates entries in increasing key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.tree.All() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Backward iterates entries in decreasing key order.
func (m *Map[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range m.tree.Backward() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys iterates keys in increasing order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for e := range m.tree.All() {
			if !yield(e.Key) {
				return
			}
		}
	}
}

// Values iterates values in increasing key order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for e := range m.tree.All() {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Assign replaces the contents with the pairs from seq. Later duplicates
// of a key are ignored. If seq holds more distinct keys than the capacity,
// [fault.ErrTreeFull] is reported and the map is left unchanged.
func (m *Map[K, V]) Assign(seq iter.Seq2[K, V]) error {
	var (
		keys   []K
		values []V
	)

	for k, v := range seq {
		keys = append(keys, k)
		values = append(values, v)
	}

	if m.tree.distinct(keys) > m.Cap() {
		m.tree.nodes.CountFailure(fault.ErrTreeFull)

		return fault.Report(m.tree.handler, fault.ErrTreeFull, "ordered.Map.Assign")
	}

	m.Clear()

	for i, k := range keys {
		if _, _, err := m.Insert(k, values[i]); err != nil {
			return err
		}
	}

	return nil
}

// AssignRange replaces the contents with the entries in [first, last) of
// another map. A reversed range reports [fault.ErrIteratorInvalid], a range
// longer than the capacity reports [fault.ErrTreeFull]; in both cases the
// map is left unchanged.
func (m *Map[K, V]) AssignRange(first, last MapIterator[K, V]) error {
	src := first.it.tree
	if src == nil || src == m.tree {
		return fault.Report(m.tree.handler, fault.ErrIteratorInvalid, "ordered.Map.AssignRange")
	}

	n, err := src.Distance(first.it, last.it)
	if err != nil {
		return err
	}

	if n > m.Cap() {
		m.tree.nodes.CountFailure(fault.ErrTreeFull)

		return fault.Report(m.tree.handler, fault.ErrTreeFull, "ordered.Map.AssignRange")
	}

	m.Clear()

	for it := first; !it.Equal(last); it = it.Next() {
		if _, _, err := m.Insert(it.Key(), it.Value()); err != nil {
			return err
		}
	}

	return nil
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() { m.tree.Clear() }

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.tree.Len() }

// Cap returns the maximum number of entries.
func (m *Map[K, V]) Cap() int { return m.tree.Cap() }

// Available returns the number of entries that can still be added.
func (m *Map[K, V]) Available() int { return m.tree.Available() }

// Empty reports whether the map holds no entry.
func (m *Map[K, V]) Empty() bool { return m.tree.Empty() }

// Full reports whether the map is at capacity.
func (m *Map[K, V]) Full() bool { return m.tree.Full() }

// Validate checks the structural invariants of the underlying tree.
func (m *Map[K, V]) Validate() error { return m.tree.Validate() }

// Stats returns the node pool statistics.
func (m *Map[K, V]) Stats() pool.Stats { return m.tree.Stats() }

// Tree exposes the underlying tree for diagnostics.
func (m *Map[K, V]) Tree() *Tree[K, Entry[K, V]] { return m.tree }

// EqualMaps reports whether a and b hold the same keys mapped to equal values.
func EqualMaps[K any, V comparable](a, b *Map[K, V]) bool {
	return EqualMapsFunc(a, b, func(x, y V) bool { return x == y })
}

// EqualMapsFunc is like EqualMaps but compares values with eq.
func EqualMapsFunc[K, V any](a, b *Map[K, V], eq func(x, y V) bool) bool {
	if a.Len() != b.Len() {
		return false
	}

	next, stop := iter.Pull(b.tree.All())
	defer stop()

	for ea := range a.tree.All() {
		eb, ok := next()
		if !ok || a.tree.less(ea.Key, eb.Key) || a.tree.less(eb.Key, ea.Key) || !eq(ea.Value, eb.Value) {
			return false
		}
	}

	return true
}
