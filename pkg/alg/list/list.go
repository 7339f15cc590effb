// Package list provides doubly and singly linked lists whose nodes are drawn
// from a fixed-capacity [pool.Pool] sized at construction.
package list

import (
	"iter"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// Option configures a List or ForwardList.
type Option func(*settings)

type settings struct {
	handler  fault.Handler
	observer pool.Observer
}

// WithHandler sets the failure handler. Defaults to [fault.Default].
func WithHandler(h fault.Handler) Option {
	return func(s *settings) { s.handler = h }
}

// WithObserver attaches an observer to the node pool.
func WithObserver(o pool.Observer) Option {
	return func(s *settings) { s.observer = o }
}

func buildSettings(opts []Option) settings {
	var s settings

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

func poolOptions[N any](s settings) []pool.Option[N] {
	out := []pool.Option[N]{pool.WithHandler[N](s.handler)}
	if s.observer != nil {
		out = append(out, pool.WithObserver[N](s.observer))
	}

	return out
}

// Element is a node of a [List].
type Element[T any] struct {
	next, prev *Element[T]
	list       *List[T]

	Value T
}

// Next returns the following element or nil.
func (e *Element[T]) Next() *Element[T] { return e.next }

// Prev returns the preceding element or nil.
func (e *Element[T]) Prev() *Element[T] { return e.prev }

// List is a fixed-capacity doubly linked list.
type List[T any] struct {
	head, tail *Element[T]
	size       int
	nodes      *pool.Pool[Element[T]]
	handler    fault.Handler
}

// New returns an empty list holding at most capacity values.
func New[T any](capacity int, opts ...Option) *List[T] {
	s := buildSettings(opts)

	return &List[T]{
		nodes:   pool.New(capacity, poolOptions[Element[T]](s)...),
		handler: s.handler,
	}
}

func (l *List[T]) alloc(v T) (*Element[T], error) {
	e, err := l.nodes.AllocateValue(Element[T]{list: l, Value: v})
	if err != nil {
		return nil, err
	}

	l.size++

	return e, nil
}

func (l *List[T]) link(e, prev, next *Element[T]) {
	e.prev = prev
	e.next = next

	if prev == nil {
		l.head = e
	} else {
		prev.next = e
	}

	if next == nil {
		l.tail = e
	} else {
		next.prev = e
	}
}

// PushFront inserts v at the front. On a full list it reports
// [fault.ErrPoolExhausted].
func (l *List[T]) PushFront(v T) (*Element[T], error) {
	return l.insert(v, nil, l.head)
}

// PushBack inserts v at the back. On a full list it reports
// [fault.ErrPoolExhausted].
func (l *List[T]) PushBack(v T) (*Element[T], error) {
	return l.insert(v, l.tail, nil)
}

// InsertBefore inserts v before mark, which must belong to l.
func (l *List[T]) InsertBefore(v T, mark *Element[T]) (*Element[T], error) {
	if mark == nil || mark.list != l {
		return nil, fault.Report(l.handler, fault.ErrIteratorInvalid, "list.InsertBefore")
	}

	return l.insert(v, mark.prev, mark)
}

// InsertAfter inserts v after mark, which must belong to l.
func (l *List[T]) InsertAfter(v T, mark *Element[T]) (*Element[T], error) {
	if mark == nil || mark.list != l {
		return nil, fault.Report(l.handler, fault.ErrIteratorInvalid, "list.InsertAfter")
	}

	return l.insert(v, mark, mark.next)
}

func (l *List[T]) insert(v T, prev, next *Element[T]) (*Element[T], error) {
	e, err := l.alloc(v)
	if err != nil {
		return nil, err
	}

	l.link(e, prev, next)

	return e, nil
}

// Remove unlinks e and returns its value. It reports false if e does not
// belong to l.
func (l *List[T]) Remove(e *Element[T]) (T, bool) {
	var zero T

	if e == nil || e.list != l {
		return zero, false
	}

	if e.prev == nil {
		l.head = e.next
	} else {
		e.prev.next = e.next
	}

	if e.next == nil {
		l.tail = e.prev
	} else {
		e.next.prev = e.prev
	}

	v := e.Value
	l.size--

	// e was allocated from l.nodes, so Release cannot fail.
	_ = l.nodes.Release(e)

	return v, true
}

// PopFront removes and returns the first value.
func (l *List[T]) PopFront() (T, bool) { return l.Remove(l.head) }

// PopBack removes and returns the last value.
func (l *List[T]) PopBack() (T, bool) { return l.Remove(l.tail) }

// Front returns the first element or nil.
func (l *List[T]) Front() *Element[T] { return l.head }

// Back returns the last element or nil.
func (l *List[T]) Back() *Element[T] { return l.tail }

// Reverse reverses the list in place.
func (l *List[T]) Reverse() {
	for e := l.head; e != nil; e = e.prev {
		e.next, e.prev = e.prev, e.next
	}

	l.head, l.tail = l.tail, l.head
}

// All iterates values from front to back.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for e := l.head; e != nil; e = e.next {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Backward iterates values from back to front.
func (l *List[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for e := l.tail; e != nil; e = e.prev {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Clear removes every value.
func (l *List[T]) Clear() {
	l.nodes.ReleaseAll()
	l.head, l.tail = nil, nil
	l.size = 0
}

// Len returns the number of values.
func (l *List[T]) Len() int { return l.size }

// Cap returns the maximum number of values.
func (l *List[T]) Cap() int { return l.nodes.Cap() }

// Available returns the number of values that can still be added.
func (l *List[T]) Available() int { return l.nodes.Available() }

// Empty reports whether the list holds no value.
func (l *List[T]) Empty() bool { return l.size == 0 }

// Full reports whether the list is at capacity.
func (l *List[T]) Full() bool { return l.nodes.Full() }

// Stats returns the node pool statistics.
func (l *List[T]) Stats() pool.Stats { return l.nodes.Stats() }
