// Package admin is a minimal host: it owns the extension points and builds
// edit forms, tree listings and search listings by running them.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/hooks"
	"github.com/calvinalkan/pagelister/internal/render"
	"github.com/calvinalkan/pagelister/internal/settings"
)

// Extension point names.
const (
	PointListable = "page.listable"
	PointActions  = "pagelist.actions"
	PointForm     = "pageedit.form"
)

// searchLimit caps search listings.
const searchLimit = 50

// Store is what the host reads.
type Store interface {
	content.Store

	// Search returns pages anywhere in the tree whose title contains text.
	Search(ctx context.Context, text string, limit int) ([]content.Record, error)
}

// Points are the host's extension points.
type Points struct {
	Listable *hooks.Point[content.Listable]
	Actions  *hooks.Point[content.Actions]
	Form     *hooks.Point[*content.Form]
}

// NewPoints returns empty extension points.
func NewPoints() *Points {
	return &Points{
		Listable: hooks.NewPoint[content.Listable](PointListable),
		Actions:  hooks.NewPoint[content.Actions](PointActions),
		Form:     hooks.NewPoint[*content.Form](PointForm),
	}
}

// Node is one entry of a tree or search listing.
type Node struct {
	ID       int64            `json:"id"`
	ParentID int64            `json:"parent_id"`
	Title    string           `json:"title"`
	Path     string           `json:"path"`
	Template string           `json:"template"`
	Status   string           `json:"status"`
	Actions  []content.Action `json:"actions"`
}

// Host serves the admin operations.
type Host struct {
	store    Store
	points   *Points
	adminURL string
}

// New returns a Host. Register handlers on points before serving.
func New(store Store, points *Points, adminURL string) *Host {
	if points == nil {
		points = NewPoints()
	}

	return &Host{store: store, points: points, adminURL: adminURL}
}

// Points returns the host's extension points.
func (h *Host) Points() *Points {
	return h.points
}

// EditForm builds the edit form of page id with the request parameters.
func (h *Host) EditForm(ctx context.Context, id int64, params url.Values) (*content.Form, error) {
	rec, err := h.store.Record(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("edit form: %w", err)
	}

	form, err := h.points.Form.Run(ctx, &content.Form{Record: rec, Params: params}, h.defaultForm)
	if err != nil {
		return nil, fmt.Errorf("edit form: %w", err)
	}

	return form, nil
}

// defaultForm adds one input per template field.
func (h *Host) defaultForm(ctx context.Context, form *content.Form) (*content.Form, error) {
	rec := form.Record

	form.Fields = append(form.Fields,
		content.FormField{Name: "title", Label: "Title", Type: content.TypeText, Value: rec.Title},
		content.FormField{Name: "name", Label: "Name", Type: content.TypeText, Value: rec.Name},
	)

	tpl, err := h.store.Template(ctx, rec.Template)
	if errors.Is(err, content.ErrNotFound) {
		return form, nil
	}

	if err != nil {
		return nil, err
	}

	for _, f := range tpl.Fields {
		if f.Name == "title" || f.Name == "name" {
			continue
		}

		label := f.Label
		if label == "" {
			label = f.Name
		}

		form.Fields = append(form.Fields, content.FormField{
			Name:  f.Name,
			Label: label,
			Type:  f.Type,
			Value: render.CellWidth(rec.Value(f.Name), 0),
		})
	}

	return form, nil
}

// TreeChildren lists the children of id shown in the navigation tree.
// An id of 0 lists the roots.
func (h *Host) TreeChildren(ctx context.Context, id int64) ([]Node, error) {
	var parent *content.Record

	if id != 0 {
		rec, err := h.store.Record(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("tree: %w", err)
		}

		parent = rec
	}

	children, err := h.store.Children(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}

	nodes, err := h.list(ctx, children, content.ContextTree, func(int64) (*content.Record, error) {
		return parent, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}

	return nodes, nil
}

// Search lists pages whose title contains text.
func (h *Host) Search(ctx context.Context, text string) ([]Node, error) {
	recs, err := h.store.Search(ctx, text, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	parents := make(map[int64]*content.Record)

	nodes, err := h.list(ctx, recs, content.ContextSearch, func(parentID int64) (*content.Record, error) {
		if parentID == 0 {
			return nil, nil
		}

		if p, ok := parents[parentID]; ok {
			return p, nil
		}

		p, err := h.store.Record(ctx, parentID)
		if err != nil {
			return nil, err
		}

		parents[parentID] = p

		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return nodes, nil
}

func (h *Host) list(
	ctx context.Context,
	recs []content.Record,
	lc content.ListContext,
	parentOf func(parentID int64) (*content.Record, error),
) ([]Node, error) {
	// handlers share one settings load per listing
	ctx = settings.WithMemo(ctx)

	nodes := make([]Node, 0, len(recs))

	for i := range recs {
		rec := &recs[i]

		parent, err := parentOf(rec.ParentID)
		if err != nil {
			return nil, err
		}

		ev, err := h.points.Listable.Run(ctx, content.Listable{
			Record:  rec,
			Parent:  parent,
			Context: lc,
			Visible: true,
		}, nil)
		if err != nil {
			return nil, err
		}

		if !ev.Visible {
			continue
		}

		actions, err := h.points.Actions.Run(ctx, content.Actions{
			Record:  rec,
			Actions: h.defaultActions(rec),
		}, nil)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, Node{
			ID:       rec.ID,
			ParentID: rec.ParentID,
			Title:    rec.Title,
			Path:     rec.Path,
			Template: rec.Template,
			Status:   rec.Status,
			Actions:  actions.Actions,
		})
	}

	return nodes, nil
}

func (h *Host) defaultActions(rec *content.Record) []content.Action {
	return []content.Action{
		{Name: "edit", Label: "Edit", Icon: "pencil", URL: render.EditURL(h.adminURL, rec.ID)},
		{Name: "view", Label: "View", Icon: "eye", URL: rec.Path},
		{Name: "new", Label: "New", Icon: "plus", URL: render.AddURL(h.adminURL, rec.ID, 0)},
	}
}
