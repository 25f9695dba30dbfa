// Package app wires the store, the host and the lister extension together.
package app

import (
	"context"
	"fmt"

	"github.com/calvinalkan/pagelister/internal/admin"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/lister"
	"github.com/calvinalkan/pagelister/internal/settings"
	"github.com/calvinalkan/pagelister/internal/store"
	"github.com/calvinalkan/pagelister/internal/tree"
)

// App is an opened store with the extension installed on a host.
type App struct {
	Config config.Config
	Store  *store.Store
	Host   *admin.Host
	Lister *lister.Lister
}

// Open opens the database named by cfg and installs the handlers.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.Open(ctx, cfg.DBAbs)
	if err != nil {
		return nil, err
	}

	a, err := New(cfg, st)
	if err != nil {
		_ = st.Close()

		return nil, err
	}

	return a, nil
}

// New installs the handlers over an open store.
func New(cfg config.Config, st *store.Store) (*App, error) {
	a := &App{Config: cfg, Store: st}

	points := admin.NewPoints()

	a.Lister = lister.New(st, a.Settings, lister.WithAdminURL(cfg.AdminURL))

	err := a.Lister.Register(points.Form)
	if err != nil {
		return nil, fmt.Errorf("install lister: %w", err)
	}

	err = tree.New(a.Settings).Register(points.Listable, points.Actions)
	if err != nil {
		return nil, fmt.Errorf("install tree adapter: %w", err)
	}

	a.Host = admin.New(st, points, cfg.AdminURL)

	return a, nil
}

// Settings reads the current settings, once per memoized listing. Decode
// warnings are dropped here; "dpl settings" reports them.
func (a *App) Settings(ctx context.Context) (settings.Settings, error) {
	return settings.Memoized(ctx, func(ctx context.Context) (settings.Settings, error) {
		s, _, err := a.Store.Settings(ctx)

		return s, err
	})
}

// Close closes the store.
func (a *App) Close() error {
	return a.Store.Close()
}
