package settings

import (
	"context"
	"sync"
)

type memoKey struct{}

type memo struct {
	mu     sync.Mutex
	loaded bool
	s      Settings
	err    error
}

// WithMemo returns a context under which Memoized loads settings at most once.
// Hosts wrap one listing or one request with it.
func WithMemo(ctx context.Context) context.Context {
	if _, ok := ctx.Value(memoKey{}).(*memo); ok {
		return ctx
	}

	return context.WithValue(ctx, memoKey{}, &memo{})
}

// Memoized returns the settings loaded by load. Under a WithMemo context the
// first result, error included, is reused; otherwise load runs every time.
func Memoized(ctx context.Context, load func(context.Context) (Settings, error)) (Settings, error) {
	m, ok := ctx.Value(memoKey{}).(*memo)
	if !ok {
		return load(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		m.s, m.err = load(ctx)
		m.loaded = true
	}

	return m.s, m.err
}
