// Package fault defines the failure kinds reported by fixed-capacity
// containers and the handlers that decide what happens when one occurs.
//
// Every fallible container operation both reports its failure to a [Handler]
// and returns it as an error. A [PanicHandler] aborts at the failure site,
// while [LogHandler] and [SilentHandler] let the caller continue with the
// returned sentinel result.
package fault

import (
	"errors"
	"fmt"
	"runtime"
)

// Failure kinds. Wrapped errors carry one of these and are matched with [errors.Is].
var (
	// ErrPoolExhausted is reported when an allocation finds no free slot.
	ErrPoolExhausted = errors.New("pool exhausted")

	// ErrNotInPool is reported when a released object does not belong to the pool.
	ErrNotInPool = errors.New("object not in pool")

	// ErrDoubleRelease is reported when a slot is released twice.
	ErrDoubleRelease = errors.New("object already released")

	// ErrTreeFull is reported when a tree insertion cannot obtain a node.
	// It matches ErrPoolExhausted as well.
	ErrTreeFull = fmt.Errorf("tree full: %w", ErrPoolExhausted)

	// ErrOutOfBounds is reported by checked element access.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrIteratorInvalid is reported for reversed or mismatched iterator ranges.
	ErrIteratorInvalid = errors.New("invalid iterator range")
)

// Site identifies where a failure was raised.
type Site struct {
	Op   string
	File string
	Line int
}

// String formats the site as "op (file:line)".
func (s Site) String() string {
	if s.File == "" {
		return s.Op
	}

	return fmt.Sprintf("%s (%s:%d)", s.Op, s.File, s.Line)
}

// Failure is the error value produced by [Report]. It unwraps to its kind.
type Failure struct {
	Kind error
	Site Site
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Site.Op, f.Kind)
}

// Unwrap returns the failure kind.
func (f *Failure) Unwrap() error {
	return f.Kind
}

// Handler decides what happens when a container operation fails.
//
// Fail must either not return (abort policy) or return normally, in which
// case the operation returns its sentinel result and the failure as an error.
type Handler interface {
	Fail(kind error, site Site)
}

// HandlerFunc adapts an ordinary function to the [Handler] interface.
type HandlerFunc func(kind error, site Site)

// Fail calls f(kind, site).
func (f HandlerFunc) Fail(kind error, site Site) {
	f(kind, site)
}

// Default is the handler used when a container is built without one.
var Default Handler = SilentHandler{} //nolint:gochecknoglobals // process-wide policy switch.

// Report raises kind through h (or [Default] when h is nil) and returns the
// resulting *[Failure]. The caller's file and line are attached to the site.
func Report(h Handler, kind error, op string) error {
	site := Site{Op: op}

	if _, file, line, ok := runtime.Caller(1); ok {
		site.File = file
		site.Line = line
	}

	if h == nil {
		h = Default
	}

	h.Fail(kind, site)

	return &Failure{Kind: kind, Site: site}
}

// Of returns the failure kind wrapped in err, or nil if err carries none.
func Of(err error) error {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}

	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

var kinds = []error{ //nolint:gochecknoglobals // immutable lookup table.
	ErrTreeFull,
	ErrPoolExhausted,
	ErrNotInPool,
	ErrDoubleRelease,
	ErrOutOfBounds,
	ErrIteratorInvalid,
}
