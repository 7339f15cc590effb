package fault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownPolicy is returned by [ByName] for an unrecognised policy name.
var ErrUnknownPolicy = errors.New("unknown fault policy")

// Policy names accepted by [ByName].
const (
	PolicyPanic  = "panic"
	PolicyLog    = "log"
	PolicySilent = "silent"
)

// PanicHandler aborts by panicking with a *[Failure].
type PanicHandler struct{}

// Fail panics with the failure.
func (PanicHandler) Fail(kind error, site Site) {
	panic(&Failure{Kind: kind, Site: site})
}

// LogHandler logs the failure and lets the operation return its sentinel result.
type LogHandler struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogHandler returns a LogHandler logging at warn level. A nil logger
// falls back to [slog.Default].
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogHandler{Logger: logger, Level: slog.LevelWarn}
}

// Fail logs the failure kind and site.
func (h *LogHandler) Fail(kind error, site Site) {
	h.Logger.LogAttrs(context.Background(), h.Level, "container operation failed",
		slog.String("op", site.Op),
		slog.String("kind", kind.Error()),
		slog.String("file", site.File),
		slog.Int("line", site.Line),
	)
}

// SilentHandler ignores the failure; the caller inspects the returned error.
type SilentHandler struct{}

// Fail does nothing.
func (SilentHandler) Fail(error, Site) {}

// ByName resolves a policy name to a handler. logger is used by the log policy.
func ByName(name string, logger *slog.Logger) (Handler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyPanic:
		return PanicHandler{}, nil
	case PolicyLog:
		return NewLogHandler(logger), nil
	case PolicySilent, "":
		return SilentHandler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Recover converts a panic raised by [PanicHandler] back into an error.
// It is meant to be deferred with a pointer to the function's error result:
//
//	defer fault.Recover(&err)
//
// Panics of any other type are re-raised.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}

	failure, ok := r.(*Failure)
	if !ok {
		panic(r)
	}

	*errp = failure
}
