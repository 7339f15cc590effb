package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

// ErrUnknownContainer is returned for a container kind the replayer cannot build.
var ErrUnknownContainer = errors.New("unknown container")

var errorKinds = map[string]error{ //nolint:gochecknoglobals // immutable lookup table.
	"tree-full":        fault.ErrTreeFull,
	"pool-exhausted":   fault.ErrPoolExhausted,
	"out-of-bounds":    fault.ErrOutOfBounds,
	"iterator-invalid": fault.ErrIteratorInvalid,
}

// StepResult is the outcome of one step.
type StepResult struct {
	Op       string `json:"op"                 yaml:"op"`
	Message  string `json:"message,omitempty"  yaml:"message,omitempty"`
	Expected []int  `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   []int  `json:"actual,omitempty"   yaml:"actual,omitempty"`
	Index    int    `json:"index"              yaml:"index"`
	Passed   bool   `json:"passed"             yaml:"passed"`
}

// Result is the outcome of a replayed script.
type Result struct {
	Name      string       `json:"name"      yaml:"name"`
	Container string       `json:"container" yaml:"container"`
	Steps     []StepResult `json:"steps"     yaml:"steps"`
	Keys      []int        `json:"keys"      yaml:"keys"` // Final in-order keys.
}

// Passed reports whether every step passed.
func (r Result) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}

	return true
}

// Failed returns the failing steps.
func (r Result) Failed() []StepResult {
	var out []StepResult

	for _, s := range r.Steps {
		if !s.Passed {
			out = append(out, s)
		}
	}

	return out
}

// target is the common surface of the replayable containers.
type target interface {
	insert(key, value int) (bool, error)
	erase(key int) bool
	at(key int) (int, error)
	keys() []int
	size() int
	validate() error
}

type setTarget struct {
	s       *ordered.Set[int]
	handler fault.Handler
}

func (t setTarget) insert(key, _ int) (bool, error) {
	_, ok, err := t.s.Insert(key)

	return ok, err
}

func (t setTarget) erase(key int) bool { return t.s.Erase(key) }

func (t setTarget) at(key int) (int, error) {
	it := t.s.Find(key)
	if !it.Valid() {
		return 0, fault.Report(t.handler, fault.ErrOutOfBounds, "scenario.set.at")
	}

	return it.Key(), nil
}

func (t setTarget) keys() []int     { return slices.Collect(t.s.All()) }
func (t setTarget) size() int       { return t.s.Len() }
func (t setTarget) validate() error { return t.s.Validate() }

type mapTarget struct{ m *ordered.Map[int, int] }

func (t mapTarget) insert(key, value int) (bool, error) {
	_, ok, err := t.m.Insert(key, value)

	return ok, err
}

func (t mapTarget) erase(key int) bool { return t.m.Erase(key) }

func (t mapTarget) at(key int) (int, error) {
	v, err := t.m.At(key)
	if err != nil {
		return 0, err
	}

	return *v, nil
}

func (t mapTarget) keys() []int     { return slices.Collect(t.m.Keys()) }
func (t mapTarget) size() int       { return t.m.Len() }
func (t mapTarget) validate() error { return t.m.Validate() }

// Replay runs the script against a freshly built container. Steps never abort
// the run; failures are recorded per step. The returned error covers setup
// problems and cancellation only.
func Replay(ctx context.Context, script *Script, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := fault.ByName(script.Policy, logger)
	if err != nil {
		return Result{}, err
	}

	var tgt target

	switch script.Container {
	case ContainerSet:
		tgt = setTarget{ordered.NewSet[int](script.Capacity, ordered.WithHandler(handler)), handler}
	case ContainerMap:
		tgt = mapTarget{ordered.NewMap[int, int](script.Capacity, ordered.WithHandler(handler))}
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownContainer, script.Container)
	}

	ctx = observability.WithContainer(ctx, script.Container)
	res := Result{Name: script.Name, Container: script.Container}

	for i, step := range script.Steps {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return res, fmt.Errorf("replay cancelled at step %d: %w", i, ctxErr)
		}

		sr := runStep(tgt, step)
		sr.Index = i
		sr.Op = step.Op

		if sr.Passed {
			if vErr := tgt.validate(); vErr != nil {
				sr.Passed = false
				sr.Message = vErr.Error()
			}
		}

		if !sr.Passed {
			logger.WarnContext(ctx, "scenario step failed", "script", script.Name, "step", i, "op", step.Op, "reason", sr.Message)
		}

		res.Steps = append(res.Steps, sr)
	}

	res.Keys = tgt.keys()

	return res, nil
}

func runStep(tgt target, step Step) StepResult {
	switch step.Op {
	case OpInsert:
		inserted, err := guard(func() (bool, error) { return tgt.insert(step.Key, step.Value) })
		if err != nil {
			return fail("insert %d: %v", step.Key, err)
		}

		if step.Expect != nil && *step.Expect != inserted {
			return fail("insert %d: inserted=%t, expected %t", step.Key, inserted, *step.Expect)
		}
	case OpErase:
		erased := tgt.erase(step.Key)
		if step.Expect != nil && *step.Expect != erased {
			return fail("erase %d: erased=%t, expected %t", step.Key, erased, *step.Expect)
		}
	case OpExpectSize:
		if got := tgt.size(); got != step.Size {
			return fail("size is %d, expected %d", got, step.Size)
		}
	case OpExpectKeys:
		got := tgt.keys()
		if !slices.Equal(got, step.Keys) {
			sr := fail("keys differ")
			sr.Expected = step.Keys
			sr.Actual = got

			return sr
		}
	case OpExpectValue:
		got, err := guard(func() (int, error) { return tgt.at(step.Key) })
		if err != nil {
			return fail("value of %d: %v", step.Key, err)
		}

		if got != step.Value {
			return fail("value of %d is %d, expected %d", step.Key, got, step.Value)
		}
	case OpExpectError:
		return expectError(tgt, step)
	default:
		return fail("unknown op %q", step.Op)
	}

	return StepResult{Passed: true}
}

func expectError(tgt target, step Step) StepResult {
	want, ok := errorKinds[step.Error]
	if !ok {
		return fail("unknown error kind %q", step.Error)
	}

	var err error

	switch step.Action {
	case ActionInsert, "":
		_, err = guard(func() (bool, error) { return tgt.insert(step.Key, step.Value) })
	case ActionAt:
		_, err = guard(func() (int, error) { return tgt.at(step.Key) })
	default:
		return fail("unknown action %q", step.Action)
	}

	if !errors.Is(err, want) {
		return fail("expected %s, got %v", want, err)
	}

	return StepResult{Passed: true}
}

// guard runs fn and converts a panic raised by a panic policy into its error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer fault.Recover(&err)

	return fn()
}

func fail(format string, args ...any) StepResult {
	return StepResult{Message: fmt.Sprintf(format, args...)}
}
