// Package lister replaces the edit form of a container record with an
// overview of its children.
package lister

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/fields"
	"github.com/calvinalkan/pagelister/internal/filter"
	"github.com/calvinalkan/pagelister/internal/hooks"
	"github.com/calvinalkan/pagelister/internal/render"
	"github.com/calvinalkan/pagelister/internal/settings"
)

// FieldName names the form field carrying the overview markup.
const FieldName = "data_page_lister"

// sampleChildren is how many existing children are inspected to find the
// templates in use below a container.
const sampleChildren = 2

// ErrNoOverview is returned by [Lister.View] when rec gets no overview.
var ErrNoOverview = errors.New("no overview")

// SettingsFunc returns the settings in effect for the current request.
type SettingsFunc func(ctx context.Context) (settings.Settings, error)

// Lister builds overviews from the store.
type Lister struct {
	store     content.Store
	settings  SettingsFunc
	sanitizer filter.Sanitizer
	adminURL  string
}

// Option configures a [Lister].
type Option func(*Lister)

// WithSanitizer replaces the default request sanitizer.
func WithSanitizer(s filter.Sanitizer) Option {
	return func(l *Lister) { l.sanitizer = s }
}

// WithAdminURL sets the admin base URL used for links.
func WithAdminURL(u string) Option {
	return func(l *Lister) { l.adminURL = u }
}

// New returns a Lister.
func New(store content.Store, fn SettingsFunc, opts ...Option) *Lister {
	l := &Lister{
		store:     store,
		settings:  fn,
		sanitizer: filter.DefaultSanitizer{},
		adminURL:  "/",
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Register installs BuildForm after the host's form default.
func (l *Lister) Register(form *hooks.Point[*content.Form]) error {
	return form.Register("lister.form", hooks.After, 0, l.BuildForm)
}

// BuildForm hides the host fields of a container's form and puts the
// overview in front of them. Forms of other records pass through unchanged.
func (l *Lister) BuildForm(ctx context.Context, form *content.Form) (hooks.Result[*content.Form], error) {
	if form == nil || form.Record == nil {
		return hooks.Next(form), nil
	}

	view, err := l.View(ctx, form.Record, form.Params)
	if errors.Is(err, ErrNoOverview) {
		return hooks.Next(form), nil
	}

	if err != nil {
		return hooks.Next(form), fmt.Errorf("build form for page %d: %w", form.Record.ID, err)
	}

	markup, err := render.Overview(view)
	if err != nil {
		return hooks.Next(form), fmt.Errorf("build form for page %d: %w", form.Record.ID, err)
	}

	form.HideAll()
	form.Prepend(content.FormField{
		Name:   FieldName,
		Label:  "Entries",
		Type:   "markup",
		Markup: markup,
	})

	return hooks.Next(form), nil
}

// View runs the query for rec's children and returns what the overview
// shows. It returns [ErrNoOverview] when rec is not a container, no child
// template can be determined, or no field is selected.
func (l *Lister) View(ctx context.Context, rec *content.Record, params filter.Params) (render.View, error) {
	s, err := l.settings(ctx)
	if err != nil {
		return render.View{}, fmt.Errorf("load settings: %w", err)
	}

	c, ok := s.ContainerFor(rec)
	if !ok {
		return render.View{}, ErrNoOverview
	}

	templates, err := l.Templates(ctx, rec)
	if err != nil {
		return render.View{}, err
	}

	if len(templates) == 0 {
		return render.View{}, ErrNoOverview
	}

	names := fields.Select(c, templates)
	if len(names) == 0 {
		return render.View{}, ErrNoOverview
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = settings.DefaultPageSize
	}

	q, state, allowed := filter.New(l.sanitizer, pageSize).Build(rec.ID, names, params)

	rows, err := l.store.Find(ctx, q)
	if err != nil {
		return render.View{}, fmt.Errorf("find children: %w", err)
	}

	total, err := l.store.Count(ctx, q)
	if err != nil {
		return render.View{}, fmt.Errorf("count children: %w", err)
	}

	return render.View{
		Parent:    rec,
		Fields:    names,
		Labels:    labels(templates[0]),
		Rows:      rows,
		Total:     total,
		PageSize:  pageSize,
		State:     state,
		Templates: templates,
		Allowed:   allowed,
		AdminURL:  l.adminURL,
		ShowHelp:  s.ShowHelpText,
		ShowView:  s.ShowViewButton,
	}, nil
}

// Templates returns the candidate child templates of rec: those of its first
// existing children in first-seen order, or else the templates rec's own
// template allows below it.
func (l *Lister) Templates(ctx context.Context, rec *content.Record) ([]*content.Template, error) {
	children, err := l.store.Children(ctx, rec.ID, sampleChildren)
	if err != nil {
		return nil, fmt.Errorf("sample children: %w", err)
	}

	var names []string

	for _, child := range children {
		if child.Template != "" && !slices.Contains(names, child.Template) {
			names = append(names, child.Template)
		}
	}

	if len(names) == 0 {
		parent, err := l.store.Template(ctx, rec.Template)
		if errors.Is(err, content.ErrNotFound) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("parent template: %w", err)
		}

		names = parent.ChildTemplates
	}

	out := make([]*content.Template, 0, len(names))

	for _, name := range names {
		tpl, err := l.store.Template(ctx, name)
		if errors.Is(err, content.ErrNotFound) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("child template %q: %w", name, err)
		}

		out = append(out, tpl)
	}

	return out, nil
}

func labels(tpl *content.Template) map[string]string {
	out := make(map[string]string, len(tpl.Fields))

	for _, f := range tpl.Fields {
		if f.Label != "" {
			out[f.Name] = f.Label
		}
	}

	return out
}
