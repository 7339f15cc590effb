package list

import (
	"iter"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// ForwardElement is a node of a [ForwardList].
type ForwardElement[T any] struct {
	next *ForwardElement[T]
	list *ForwardList[T]

	Value T
}

// Next returns the following element or nil.
func (e *ForwardElement[T]) Next() *ForwardElement[T] { return e.next }

// ForwardList is a fixed-capacity singly linked list.
type ForwardList[T any] struct {
	head    *ForwardElement[T]
	size    int
	nodes   *pool.Pool[ForwardElement[T]]
	handler fault.Handler
}

// NewForward returns an empty forward list holding at most capacity values.
func NewForward[T any](capacity int, opts ...Option) *ForwardList[T] {
	s := buildSettings(opts)

	return &ForwardList[T]{
		nodes:   pool.New(capacity, poolOptions[ForwardElement[T]](s)...),
		handler: s.handler,
	}
}

func (l *ForwardList[T]) alloc(v T, next *ForwardElement[T]) (*ForwardElement[T], error) {
	e, err := l.nodes.AllocateValue(ForwardElement[T]{next: next, list: l, Value: v})
	if err != nil {
		return nil, err
	}

	l.size++

	return e, nil
}

// PushFront inserts v at the front. On a full list it reports
// [fault.ErrPoolExhausted].
func (l *ForwardList[T]) PushFront(v T) (*ForwardElement[T], error) {
	e, err := l.alloc(v, l.head)
	if err != nil {
		return nil, err
	}

	l.head = e

	return e, nil
}

// InsertAfter inserts v after mark, which must belong to l.
func (l *ForwardList[T]) InsertAfter(v T, mark *ForwardElement[T]) (*ForwardElement[T], error) {
	if mark == nil || mark.list != l {
		return nil, fault.Report(l.handler, fault.ErrIteratorInvalid, "list.ForwardList.InsertAfter")
	}

	e, err := l.alloc(v, mark.next)
	if err != nil {
		return nil, err
	}

	mark.next = e

	return e, nil
}

// PopFront removes and returns the first value.
func (l *ForwardList[T]) PopFront() (T, bool) {
	var zero T

	e := l.head
	if e == nil {
		return zero, false
	}

	l.head = e.next

	return l.release(e), true
}

// EraseAfter removes the element following mark and returns its value.
// It reports false if mark is the last element or does not belong to l.
func (l *ForwardList[T]) EraseAfter(mark *ForwardElement[T]) (T, bool) {
	var zero T

	if mark == nil || mark.list != l || mark.next == nil {
		return zero, false
	}

	e := mark.next
	mark.next = e.next

	return l.release(e), true
}

func (l *ForwardList[T]) release(e *ForwardElement[T]) T {
	v := e.Value
	l.size--

	// e was allocated from l.nodes, so Release cannot fail.
	_ = l.nodes.Release(e)

	return v
}

// Front returns the first element or nil.
func (l *ForwardList[T]) Front() *ForwardElement[T] { return l.head }

// Reverse reverses the list in place.
func (l *ForwardList[T]) Reverse() {
	var prev *ForwardElement[T]

	for e := l.head; e != nil; {
		next := e.next
		e.next = prev
		prev = e
		e = next
	}

	l.head = prev
}

// All iterates values from front to back.
func (l *ForwardList[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for e := l.head; e != nil; e = e.next {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Clear removes every value.
func (l *ForwardList[T]) Clear() {
	l.nodes.ReleaseAll()
	l.head = nil
	l.size = 0
}

// Len returns the number of values.
func (l *ForwardList[T]) Len() int { return l.size }

// Cap returns the maximum number of values.
func (l *ForwardList[T]) Cap() int { return l.nodes.Cap() }

// Available returns the number of values that can still be added.
func (l *ForwardList[T]) Available() int { return l.nodes.Available() }

// Empty reports whether the list holds no value.
func (l *ForwardList[T]) Empty() bool { return l.size == 0 }

// Full reports whether the list is at capacity.
func (l *ForwardList[T]) Full() bool { return l.nodes.Full() }
