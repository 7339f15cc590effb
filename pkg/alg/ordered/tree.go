// Package ordered implements fixed-capacity ordered maps and sets on top of
// an AVL tree whose nodes live in a [pool.Pool].
//
// Nodes carry two child links and a three-state lean but no parent link.
// Insertion and removal are iterative: each records its path in the
// per-node dir field on the way down and rebalances from the deepest node
// whose height can change. Successor, predecessor and parent lookups
// re-descend from the root, so stepping an iterator costs O(log n).
package ordered

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// Child directions and node leans.
const (
	left    uint8 = 0
	right   uint8 = 1
	neither uint8 = 2
)

// ErrCorrupted is returned by Validate when a structural invariant fails.
var ErrCorrupted = errors.New("ordered: tree invariant violated")

type node[T any] struct {
	children [2]*node[T]
	weight   uint8 // Heavier side, or neither.
	dir      uint8 // Direction taken by the last descent through this node.
	value    T
}

// Tree is the AVL engine shared by [Map] and [Set]. Payloads of type T are
// ordered by the key that keyOf extracts, compared with less.
//
// A Tree is not safe for concurrent use.
type Tree[K, T any] struct {
	root    *node[T]
	size    int
	nodes   *pool.Pool[node[T]]
	keyOf   func(*T) K
	less    func(a, b K) bool
	handler fault.Handler
}

// NewTree returns an empty tree holding at most capacity payloads.
// It panics if capacity is negative or keyOf or less is nil.
func NewTree[K, T any](capacity int, keyOf func(*T) K, less func(a, b K) bool, opts ...Option) *Tree[K, T] {
	if capacity < 0 {
		panic("ordered: negative capacity")
	}

	if keyOf == nil || less == nil {
		panic("ordered: nil key function or comparator")
	}

	s := buildSettings(opts)

	poolOpts := []pool.Option[node[T]]{pool.WithHandler[node[T]](s.handler)}
	if s.observer != nil {
		poolOpts = append(poolOpts, pool.WithObserver[node[T]](s.observer))
	}

	return &Tree[K, T]{
		nodes:   pool.New(capacity, poolOpts...),
		keyOf:   keyOf,
		less:    less,
		handler: s.handler,
	}
}

func (t *Tree[K, T]) key(n *node[T]) K {
	return t.keyOf(&n.value)
}

func (t *Tree[K, T]) find(key K) *node[T] {
	n := t.root

	for n != nil {
		nk := t.key(n)

		switch {
		case t.less(key, nk):
			n = n.children[left]
		case t.less(nk, key):
			n = n.children[right]
		default:
			return n
		}
	}

	return nil
}

// Insert adds value unless its key is already present.
//
// It returns an iterator to the payload with that key and whether value was
// inserted. A duplicate key is not an error and never consumes a node. When
// the tree is full it reports [fault.ErrTreeFull] and returns End.
func (t *Tree[K, T]) Insert(value T) (Iterator[K, T], bool, error) {
	if t.root == nil {
		n, err := t.newNode(value)
		if err != nil {
			return t.End(), false, err
		}

		t.root = n
		t.size++

		return Iterator[K, T]{tree: t, n: n}, true, nil
	}

	key := t.keyOf(&value)

	// criticalParent is the parent of the deepest unbalanced node on the
	// path; nil means that node is the root.
	var criticalParent *node[T]

	found := t.root

	for {
		fk := t.key(found)

		switch {
		case t.less(key, fk):
			found.dir = left
		case t.less(fk, key):
			found.dir = right
		default:
			found.dir = neither

			return Iterator[K, T]{tree: t, n: found}, false, nil
		}

		child := found.children[found.dir]
		if child == nil {
			break
		}

		if child.weight != neither {
			criticalParent = found
		}

		found = child
	}

	n, err := t.newNode(value)
	if err != nil {
		return t.End(), false, err
	}

	found.children[found.dir] = n
	t.size++

	if criticalParent == nil {
		t.rebalance(&t.root)
	} else {
		t.rebalance(&criticalParent.children[criticalParent.dir])
	}

	return Iterator[K, T]{tree: t, n: n}, true, nil
}

func (t *Tree[K, T]) newNode(value T) (*node[T], error) {
	if t.nodes.Full() {
		t.nodes.CountFailure(fault.ErrTreeFull)

		return nil, fault.Report(t.handler, fault.ErrTreeFull, "ordered.Insert")
	}

	n, err := t.nodes.AllocateValue(node[T]{weight: neither, dir: neither, value: value})
	if err != nil {
		return nil, fmt.Errorf("allocate node: %w", err)
	}

	return n, nil
}

// distinct returns the number of distinct keys in keys under t's ordering.
func (t *Tree[K, T]) distinct(keys []K) int {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b K) int {
		switch {
		case t.less(a, b):
			return -1
		case t.less(b, a):
			return 1
		default:
			return 0
		}
	})

	n := 0

	for i := range sorted {
		if i == 0 || t.less(sorted[i-1], sorted[i]) {
			n++
		}
	}

	return n
}

// rebalance restores balance after an insertion below the critical node
// held in slot.
func (t *Tree[K, T]) rebalance(slot **node[T]) {
	critical := *slot

	// Every node between the critical node and the new leaf was balanced,
	// so each now leans towards the leaf.
	for w := critical.children[critical.dir]; w != nil && w.dir != neither; w = w.children[w.dir] {
		if w.weight == 1-w.dir {
			w.weight = neither
		} else {
			w.weight = w.dir
		}
	}

	switch {
	case critical.weight == neither:
		critical.weight = critical.dir
	case critical.weight != critical.dir:
		critical.weight = neither
	case critical.children[critical.dir].dir == critical.weight:
		rotate2(slot, critical.dir)
	default:
		rotate3(slot, critical.dir, critical.children[critical.dir].children[1-critical.dir].dir)
	}
}

// rotate2 performs a single rotation lifting the dir child of *slot.
//
//	    A            C
//	  B   C   ->   A   E
//	     D E      B D
func rotate2[T any](slot **node[T], dir uint8) {
	pos := *slot
	top := pos.children[dir]

	pos.children[dir] = top.children[1-dir]
	top.children[1-dir] = pos
	pos.weight = neither
	top.weight = neither

	*slot = top
}

// rotate3 performs a double rotation lifting the inner grandchild on the dir
// side of *slot. third is the side of that grandchild that carries the extra
// height, or neither.
//
//	    --A--            --E--
//	  _B_    C   ->     B     A
//	 D   E             D F   G C
//	    F G
func rotate3[T any](slot **node[T], dir, third uint8) {
	pos := *slot
	child := pos.children[dir]
	top := child.children[1-dir]

	if third != neither && third != dir {
		child.weight = dir
	} else {
		child.weight = neither
	}

	child.children[1-dir] = top.children[dir]
	top.children[dir] = child

	if third != neither && third == dir {
		pos.weight = 1 - dir
	} else {
		pos.weight = neither
	}

	pos.children[dir] = top.children[1-dir]
	top.children[1-dir] = pos
	top.weight = neither

	*slot = top
}

// Erase removes the payload with key and reports whether one was removed.
func (t *Tree[K, T]) Erase(key K) bool {
	var (
		found, foundParent *node[T]
		replaceParent      *node[T]
		balanceParent      *node[T]
	)

	replace := t.root
	balance := t.root

	// Find the target, its in-order replacement and the highest node whose
	// lean must change.
	for replace != nil {
		rk := t.key(replace)

		switch {
		case t.less(key, rk):
			replace.dir = left
		case t.less(rk, key):
			replace.dir = right
		default:
			replace.dir = right
			if replace.children[left] != nil {
				replace.dir = left
			}

			foundParent = replaceParent
			found = replace
		}

		if replace.children[replace.dir] == nil {
			break
		}

		if replace.weight == neither ||
			(replace.weight == 1-replace.dir && replace.children[1-replace.dir].weight == neither) {
			balanceParent = replaceParent
			balance = replace
		}

		replaceParent = replace
		replace = replace.children[replace.dir]
	}

	if found == nil {
		return false
	}

	for balance != nil && balance.children[balance.dir] != nil {
		d := balance.dir

		switch balance.weight {
		case neither:
			balance.weight = 1 - d
		case d:
			balance.weight = neither
		default:
			slot := &t.root
			if balanceParent != nil {
				slot = &balanceParent.children[balanceParent.dir]
			}

			sibling := balance.children[1-d]

			switch sibling.weight {
			case d:
				rotate3(slot, 1-d, sibling.children[d].weight)
			case neither:
				rotate2(slot, 1-d)
				(*slot).weight = d
				balance.weight = 1 - d
			default:
				rotate2(slot, 1-d)
			}

			// The rotation moved the target under a new parent.
			if balance == found {
				foundParent = *slot

				foundParent.dir = right
				if foundParent.children[left] == found {
					foundParent.dir = left
				}
			}
		}

		balanceParent = balance
		balance = balance.children[balance.dir]
	}

	switch {
	case foundParent != nil:
		detach(&foundParent.children[foundParent.dir], &replaceParent.children[replaceParent.dir])
	case replaceParent != nil:
		detach(&t.root, &replaceParent.children[replaceParent.dir])
	default:
		detach(&t.root, &t.root)
	}

	t.size--

	// found was allocated from t.nodes, so Release cannot fail.
	_ = t.nodes.Release(found)

	return true
}

// detach unlinks the node in pos and puts the node in replacement in its
// place. The replacement's remaining child takes the replacement's old slot.
func detach[T any](pos, replacement **node[T]) {
	detached := *pos
	swap := *replacement

	*pos = swap
	*replacement = swap.children[1-swap.dir]

	swap.children = detached.children
	swap.weight = detached.weight
}

// findParent returns the parent of n, or nil if n is the root.
func (t *Tree[K, T]) findParent(n *node[T]) *node[T] {
	pos := t.root
	if pos == nil || n == nil || pos == n {
		return nil
	}

	key := t.key(n)

	for pos != nil {
		if pos.children[left] == n || pos.children[right] == n {
			return pos
		}

		pk := t.key(pos)

		switch {
		case t.less(key, pk):
			pos = pos.children[left]
		case t.less(pk, key):
			pos = pos.children[right]
		default:
			return nil
		}
	}

	return nil
}

func limit[T any](n *node[T], dir uint8) *node[T] {
	for n != nil && n.children[dir] != nil {
		n = n.children[dir]
	}

	return n
}

// next returns the in-order successor of n, or nil.
func (t *Tree[K, T]) next(n *node[T]) *node[T] {
	if n == nil {
		return nil
	}

	if n.children[right] != nil {
		return limit(n.children[right], left)
	}

	for {
		parent := t.findParent(n)
		if parent == nil || parent.children[right] != n {
			return parent
		}

		n = parent
	}
}

// prev returns the in-order predecessor of n. The predecessor of nil (End)
// is the last node.
func (t *Tree[K, T]) prev(n *node[T]) *node[T] {
	if n == nil {
		return limit(t.root, right)
	}

	if n.children[left] != nil {
		return limit(n.children[left], right)
	}

	for {
		parent := t.findParent(n)
		if parent == nil || parent.children[left] != n {
			return parent
		}

		n = parent
	}
}

// Find returns an iterator to the payload with key, or End.
func (t *Tree[K, T]) Find(key K) Iterator[K, T] {
	return Iterator[K, T]{tree: t, n: t.find(key)}
}

// Contains reports whether key is present.
func (t *Tree[K, T]) Contains(key K) bool {
	return t.find(key) != nil
}

// Count returns the number of payloads with key: 0 or 1.
func (t *Tree[K, T]) Count(key K) int {
	if t.find(key) != nil {
		return 1
	}

	return 0
}

// LowerBound returns the first payload whose key is not less than key.
func (t *Tree[K, T]) LowerBound(key K) Iterator[K, T] {
	var best *node[T]

	for n := t.root; n != nil; {
		if t.less(t.key(n), key) {
			n = n.children[right]
		} else {
			best = n
			n = n.children[left]
		}
	}

	return Iterator[K, T]{tree: t, n: best}
}

// UpperBound returns the first payload whose key is greater than key.
func (t *Tree[K, T]) UpperBound(key K) Iterator[K, T] {
	var best *node[T]

	for n := t.root; n != nil; {
		if t.less(key, t.key(n)) {
			best = n
			n = n.children[left]
		} else {
			n = n.children[right]
		}
	}

	return Iterator[K, T]{tree: t, n: best}
}

// EqualRange returns the range of payloads with key.
func (t *Tree[K, T]) EqualRange(key K) (first, last Iterator[K, T]) {
	return t.LowerBound(key), t.UpperBound(key)
}

// EraseAt removes the payload at it and returns the iterator following it.
// Erasing End returns End. An iterator of another tree reports
// [fault.ErrIteratorInvalid], removes nothing and returns End.
func (t *Tree[K, T]) EraseAt(it Iterator[K, T]) Iterator[K, T] {
	if it.tree != t {
		_ = fault.Report(t.handler, fault.ErrIteratorInvalid, "ordered.EraseAt")

		return t.End()
	}

	if it.n == nil {
		return t.End()
	}

	next := t.next(it.n)
	t.Erase(t.key(it.n))

	return Iterator[K, T]{tree: t, n: next}
}

// EraseRange removes the payloads in [first, last) and returns last.
// A range that does not belong to t or whose last precedes first reports
// [fault.ErrIteratorInvalid] and removes nothing.
func (t *Tree[K, T]) EraseRange(first, last Iterator[K, T]) (Iterator[K, T], error) {
	if _, err := t.Distance(first, last); err != nil {
		return last, err
	}

	for first.n != last.n {
		first = t.EraseAt(first)
	}

	return last, nil
}

// Distance returns the number of steps from first to last. A range that
// does not belong to t or is reversed reports [fault.ErrIteratorInvalid].
func (t *Tree[K, T]) Distance(first, last Iterator[K, T]) (int, error) {
	if first.tree != t || last.tree != t {
		return 0, fault.Report(t.handler, fault.ErrIteratorInvalid, "ordered.Distance")
	}

	d := 0

	for n := first.n; n != last.n; n = t.next(n) {
		if n == nil {
			return 0, fault.Report(t.handler, fault.ErrIteratorInvalid, "ordered.Distance")
		}

		d++
	}

	return d, nil
}

// Clear removes every payload.
func (t *Tree[K, T]) Clear() {
	t.nodes.ReleaseAll()
	t.root = nil
	t.size = 0
}

// Len returns the number of payloads.
func (t *Tree[K, T]) Len() int { return t.size }

// Cap returns the maximum number of payloads.
func (t *Tree[K, T]) Cap() int { return t.nodes.Cap() }

// Available returns the number of payloads that can still be inserted.
func (t *Tree[K, T]) Available() int { return t.nodes.Cap() - t.size }

// Empty reports whether the tree holds no payload.
func (t *Tree[K, T]) Empty() bool { return t.size == 0 }

// Full reports whether the tree is at capacity.
func (t *Tree[K, T]) Full() bool { return t.size == t.nodes.Cap() }

// Stats returns the node pool statistics.
func (t *Tree[K, T]) Stats() pool.Stats { return t.nodes.Stats() }

// Less reports whether key a orders before key b.
func (t *Tree[K, T]) Less(a, b K) bool { return t.less(a, b) }
