package ordered

import "iter"

// Iterator is a position in a [Tree]. The zero value and End are past the
// last payload. Erasing the payload an iterator points at invalidates it;
// other iterators stay valid.
type Iterator[K, T any] struct {
	tree *Tree[K, T]
	n    *node[T]
}

// Valid reports whether the iterator points at a payload.
func (it Iterator[K, T]) Valid() bool {
	return it.n != nil
}

// Item returns the payload, or nil at End.
func (it Iterator[K, T]) Item() *T {
	if it.n == nil {
		return nil
	}

	return &it.n.value
}

// Next returns the iterator to the following payload. Next of End is End.
func (it Iterator[K, T]) Next() Iterator[K, T] {
	if it.tree == nil || it.n == nil {
		return it
	}

	return Iterator[K, T]{tree: it.tree, n: it.tree.next(it.n)}
}

// Prev returns the iterator to the preceding payload. Prev of End is the
// last payload; Prev of the first payload is End.
func (it Iterator[K, T]) Prev() Iterator[K, T] {
	if it.tree == nil {
		return it
	}

	return Iterator[K, T]{tree: it.tree, n: it.tree.prev(it.n)}
}

// Equal reports whether both iterators denote the same position.
func (it Iterator[K, T]) Equal(other Iterator[K, T]) bool {
	return it.tree == other.tree && it.n == other.n
}

// Begin returns an iterator to the smallest payload, or End.
func (t *Tree[K, T]) Begin() Iterator[K, T] {
	return Iterator[K, T]{tree: t, n: limit(t.root, left)}
}

// End returns the past-the-end iterator.
func (t *Tree[K, T]) End() Iterator[K, T] {
	return Iterator[K, T]{tree: t}
}

// Last returns an iterator to the largest payload, or End.
func (t *Tree[K, T]) Last() Iterator[K, T] {
	return Iterator[K, T]{tree: t, n: limit(t.root, right)}
}

// All iterates payloads in increasing key order.
func (t *Tree[K, T]) All() iter.Seq[*T] {
	return t.walk(left)
}

// Backward iterates payloads in decreasing key order.
func (t *Tree[K, T]) Backward() iter.Seq[*T] {
	return t.walk(right)
}

// maxHeight bounds the height of an AVL tree addressable with int sizes.
const maxHeight = 96

// walk visits nodes in order, starting from the dir side. It keeps its own
// stack so a full traversal is linear rather than a chain of re-descents.
func (t *Tree[K, T]) walk(dir uint8) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		var buf [maxHeight]*node[T]

		stack := buf[:0]

		n := t.root

		for n != nil || len(stack) > 0 {
			for n != nil {
				stack = append(stack, n)
				n = n.children[dir]
			}

			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(&n.value) {
				return
			}

			n = n.children[1-dir]
		}
	}
}
