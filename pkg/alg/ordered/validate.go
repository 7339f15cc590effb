package ordered

import (
	"fmt"
	"iter"
)

// Lean is the stored balance state of a node.
type Lean uint8

// Lean values.
const (
	LeanLeft     Lean = Lean(left)
	LeanRight    Lean = Lean(right)
	LeanBalanced Lean = Lean(neither)
)

// String returns "left", "right" or "balanced".
func (l Lean) String() string {
	switch l {
	case LeanLeft:
		return "left"
	case LeanRight:
		return "right"
	case LeanBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("Lean(%d)", uint8(l))
	}
}

// Side is the position of a node relative to its parent.
type Side uint8

// Side values.
const (
	SideRoot Side = iota
	SideLeft
	SideRight
)

// NodeView describes one node during a structural walk.
type NodeView[T any] struct {
	Item  *T
	Depth int
	Side  Side
	Lean  Lean
	Slot  int // Pool slot holding the node.
}

// Nodes walks the tree in pre-order, exposing the shape for diagnostics.
func (t *Tree[K, T]) Nodes() iter.Seq[NodeView[T]] {
	return func(yield func(NodeView[T]) bool) {
		t.visit(t.root, 0, SideRoot, yield)
	}
}

func (t *Tree[K, T]) visit(n *node[T], depth int, side Side, yield func(NodeView[T]) bool) bool {
	if n == nil {
		return true
	}

	slot, _ := t.nodes.Index(n)

	view := NodeView[T]{
		Item:  &n.value,
		Depth: depth,
		Side:  side,
		Lean:  Lean(n.weight),
		Slot:  slot,
	}

	return yield(view) &&
		t.visit(n.children[left], depth+1, SideLeft, yield) &&
		t.visit(n.children[right], depth+1, SideRight, yield)
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[K, T]) Height() int {
	return height(t.root)
}

func height[T any](n *node[T]) int {
	if n == nil {
		return 0
	}

	return 1 + max(height(n.children[left]), height(n.children[right]))
}

// Validate checks every structural invariant: strictly increasing keys,
// subtree heights differing by at most one, stored leans matching those
// heights, and the node count matching both Len and the pool.
func (t *Tree[K, T]) Validate() error {
	count, _, err := t.check(t.root, nil, nil)
	if err != nil {
		return err
	}

	if count != t.size {
		return fmt.Errorf("%w: %d reachable nodes, size %d", ErrCorrupted, count, t.size)
	}

	if live := t.nodes.Len(); live != t.size {
		return fmt.Errorf("%w: %d live pool slots, size %d", ErrCorrupted, live, t.size)
	}

	return nil
}

// check validates the subtree at n, whose keys must lie strictly between
// lo and hi when those are set. It returns the node count and height.
func (t *Tree[K, T]) check(n *node[T], lo, hi *K) (count, h int, err error) {
	if n == nil {
		return 0, 0, nil
	}

	key := t.key(n)

	if lo != nil && !t.less(*lo, key) {
		return 0, 0, fmt.Errorf("%w: key %v not after %v", ErrCorrupted, key, *lo)
	}

	if hi != nil && !t.less(key, *hi) {
		return 0, 0, fmt.Errorf("%w: key %v not before %v", ErrCorrupted, key, *hi)
	}

	lc, lh, err := t.check(n.children[left], lo, &key)
	if err != nil {
		return 0, 0, err
	}

	rc, rh, err := t.check(n.children[right], &key, hi)
	if err != nil {
		return 0, 0, err
	}

	var want uint8

	switch lh - rh {
	case 1:
		want = left
	case 0:
		want = neither
	case -1:
		want = right
	default:
		return 0, 0, fmt.Errorf("%w: key %v unbalanced (left %d, right %d)", ErrCorrupted, key, lh, rh)
	}

	if n.weight != want {
		return 0, 0, fmt.Errorf("%w: key %v leans %v, heights say %v",
			ErrCorrupted, key, Lean(n.weight), Lean(want))
	}

	return lc + rc + 1, 1 + max(lh, rh), nil
}
