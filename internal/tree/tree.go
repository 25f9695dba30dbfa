// Package tree adjusts the navigation tree for container records: their
// children are hidden from the tree and their edit action becomes "Table".
package tree

import (
	"context"
	"fmt"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/hooks"
	"github.com/calvinalkan/pagelister/internal/settings"
)

// Relabelled edit action.
const (
	ActionEdit = "edit"
	TableLabel = "Table"
	TableIcon  = "table"
)

// SettingsFunc returns the settings in effect for the current request.
type SettingsFunc func(ctx context.Context) (settings.Settings, error)

// Adapter holds the two navigation handlers.
type Adapter struct {
	settings SettingsFunc
}

// New returns an Adapter reading settings through fn. fn is called once per
// handler invocation; the host memoizes it per listing (see settings.WithMemo).
func New(fn SettingsFunc) *Adapter {
	return &Adapter{settings: fn}
}

// Register installs Listable before and Actions after the host defaults.
func (a *Adapter) Register(listable *hooks.Point[content.Listable], actions *hooks.Point[content.Actions]) error {
	err := listable.Register("tree.listable", hooks.Before, 0, a.Listable)
	if err != nil {
		return err
	}

	return actions.Register("tree.actions", hooks.After, 0, a.Actions)
}

// Listable hides children of containers in the navigation tree. The decision
// is final so later handlers cannot list the child again. Other listing
// contexts are left alone.
func (a *Adapter) Listable(ctx context.Context, ev content.Listable) (hooks.Result[content.Listable], error) {
	if ev.Context != content.ContextTree || ev.Parent == nil || ev.Parent.ID == 0 {
		return hooks.Next(ev), nil
	}

	s, err := a.settings(ctx)
	if err != nil {
		return hooks.Next(ev), fmt.Errorf("listable: %w", err)
	}

	if !s.HideChildrenInTree || !s.IsContainer(ev.Parent) {
		return hooks.Next(ev), nil
	}

	ev.Visible = false

	return hooks.Final(ev), nil
}

// Actions renames the edit action of a container record to "Table".
func (a *Adapter) Actions(ctx context.Context, ev content.Actions) (hooks.Result[content.Actions], error) {
	if ev.Record == nil || ev.Record.ID == 0 {
		return hooks.Next(ev), nil
	}

	s, err := a.settings(ctx)
	if err != nil {
		return hooks.Next(ev), fmt.Errorf("actions: %w", err)
	}

	if !s.RenameEditToTable || !s.IsContainer(ev.Record) {
		return hooks.Next(ev), nil
	}

	actions := make([]content.Action, len(ev.Actions))
	copy(actions, ev.Actions)

	for i := range actions {
		if actions[i].Name == ActionEdit {
			actions[i].Label = TableLabel
			actions[i].Icon = TableIcon
		}
	}

	ev.Actions = actions

	return hooks.Next(ev), nil
}
