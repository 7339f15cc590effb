package ordered

import (
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
)

// Option configures a tree, map or set.
type Option func(*settings)

type settings struct {
	handler  fault.Handler
	observer pool.Observer
}

// WithHandler sets the failure handler. Defaults to [fault.Default].
func WithHandler(h fault.Handler) Option {
	return func(s *settings) {
		s.handler = h
	}
}

// WithObserver attaches an observer to the node pool.
func WithObserver(o pool.Observer) Option {
	return func(s *settings) {
		s.observer = o
	}
}

func buildSettings(opts []Option) settings {
	var s settings

	for _, opt := range opts {
		opt(&s)
	}

	if s.handler == nil {
		s.handler = fault.Default
	}

	return s
}
