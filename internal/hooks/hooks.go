// Package hooks provides typed extension points.
//
// A Point runs before-handlers, then the host's default behaviour, then
// after-handlers. Handlers are pure: they receive the current value and return
// the next one. A handler that returns a final result ends the chain; nothing
// registered later (and, for a before-handler, not even the default) can
// override its decision.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrNilHandler is returned when registering a nil handler.
var ErrNilHandler = errors.New("nil handler")

// Phase orders a handler relative to the default behaviour.
type Phase int

const (
	// Before handlers run ahead of the default.
	Before Phase = iota
	// After handlers run once the default produced a value.
	After
)

func (p Phase) String() string {
	if p == Before {
		return "before"
	}

	return "after"
}

// Result is a handler's output.
type Result[T any] struct {
	Value T
	Final bool
}

// Next continues the chain with v.
func Next[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Final ends the chain with v.
func Final[T any](v T) Result[T] {
	return Result[T]{Value: v, Final: true}
}

// Handler transforms the value flowing through a point.
type Handler[T any] func(ctx context.Context, in T) (Result[T], error)

// Default is the host behaviour a point wraps.
type Default[T any] func(ctx context.Context, in T) (T, error)

type registration[T any] struct {
	name     string
	phase    Phase
	priority int
	seq      int
	fn       Handler[T]
}

// Registration describes a registered handler.
type Registration struct {
	Name     string
	Phase    Phase
	Priority int
}

// Point is a named extension point carrying values of type T.
// Register handlers at startup; Run is safe for concurrent use afterwards.
type Point[T any] struct {
	name     string
	handlers []registration[T]
}

// NewPoint returns an empty point.
func NewPoint[T any](name string) *Point[T] {
	return &Point[T]{name: name}
}

// Name returns the point's name.
func (p *Point[T]) Name() string {
	return p.name
}

// Register adds fn. Within a phase, lower priority runs first; equal
// priorities run in registration order.
func (p *Point[T]) Register(name string, phase Phase, priority int, fn Handler[T]) error {
	if fn == nil {
		return fmt.Errorf("register %s on %s: %w", name, p.name, ErrNilHandler)
	}

	p.handlers = append(p.handlers, registration[T]{
		name:     name,
		phase:    phase,
		priority: priority,
		seq:      len(p.handlers),
		fn:       fn,
	})

	slices.SortStableFunc(p.handlers, func(a, b registration[T]) int {
		if a.phase != b.phase {
			return int(a.phase) - int(b.phase)
		}

		if a.priority != b.priority {
			return a.priority - b.priority
		}

		return a.seq - b.seq
	})

	return nil
}

// Registrations lists handlers in run order.
func (p *Point[T]) Registrations() []Registration {
	out := make([]Registration, 0, len(p.handlers))

	for _, h := range p.handlers {
		out = append(out, Registration{Name: h.name, Phase: h.phase, Priority: h.priority})
	}

	return out
}

// Run passes in through the chain. A nil def leaves the value unchanged.
func (p *Point[T]) Run(ctx context.Context, in T, def Default[T]) (T, error) {
	value := in
	ranDefault := false

	for _, h := range p.handlers {
		if h.phase == After && !ranDefault {
			ranDefault = true

			next, err := runDefault(ctx, def, value)
			if err != nil {
				return value, fmt.Errorf("%s: default: %w", p.name, err)
			}

			value = next
		}

		res, err := h.fn(ctx, value)
		if err != nil {
			return value, fmt.Errorf("%s: %s: %w", p.name, h.name, err)
		}

		value = res.Value

		if res.Final {
			return value, nil
		}
	}

	if !ranDefault {
		next, err := runDefault(ctx, def, value)
		if err != nil {
			return value, fmt.Errorf("%s: default: %w", p.name, err)
		}

		value = next
	}

	return value, nil
}

func runDefault[T any](ctx context.Context, def Default[T], v T) (T, error) {
	if def == nil {
		return v, nil
	}

	return def(ctx, v)
}
