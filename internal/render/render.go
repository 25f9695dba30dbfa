// Package render turns one page of child records into the overview markup
// that replaces a container's edit form.
//
// Rendering is a pure function of [View]. Every dynamic value goes through
// html/template's contextual escaping; nothing is concatenated into markup by
// hand, and the client script reads its settings from data attributes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/filter"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// searchDebounceMS is the live-search delay handed to the client script.
const searchDebounceMS = 400

// View is everything the overview shows.
type View struct {
	Parent    *content.Record
	Fields    []string
	Labels    map[string]string // Labels maps field names to column headers; missing names use the field name.
	Rows      []content.Record
	Total     int
	PageSize  int
	State     filter.State
	Templates []*content.Template
	Allowed   []string
	AdminURL  string
	BaseURL   string // BaseURL is the overview's own URL; filter and pager links extend it.
	ShowHelp  bool
	ShowView  bool
}

// data is the template input: the view plus derived values.
type data struct {
	View
	Pager      []PageItem
	Sortable   []string
	AddURL     string
	FormAction string
	BaseParams map[string]string
	Debounce   int
}

var overviewTmpl = template.Must(template.New("overview").Funcs(template.FuncMap{
	"plural":        plural,
	"templateNames": templateNames,
	"join":          strings.Join,
	"cell":          Cell,
	"label": func(d *data, name string) string {
		if l := d.Labels[name]; l != "" {
			return l
		}

		return name
	},
	"editURL": func(d *data, id int64) string {
		return EditURL(d.AdminURL, id)
	},
	"pageURL": func(d *data, n int) string {
		return d.State.Link(d.BaseURL, n)
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// Overview renders v.
func Overview(v View) (string, error) {
	d := newData(v)

	var buf bytes.Buffer

	err := overviewTmpl.ExecuteTemplate(&buf, "overview", d)
	if err != nil {
		return "", fmt.Errorf("render overview: %w", err)
	}

	return buf.String(), nil
}

func newData(v View) *data {
	if v.Parent == nil {
		v.Parent = &content.Record{}
	}

	if v.BaseURL == "" {
		v.BaseURL = EditURL(v.AdminURL, v.Parent.ID)
	}

	d := &data{
		View:       v,
		Pager:      Pages(v.Total, v.PageSize, v.State.Page),
		Sortable:   sortable(v.Allowed, v.State.Sort),
		FormAction: v.BaseURL,
		Debounce:   searchDebounceMS,
	}

	if u, err := url.Parse(v.BaseURL); err == nil {
		d.FormAction = u.Path
		d.BaseParams = make(map[string]string)

		for k, vals := range u.Query() {
			if len(vals) > 0 {
				d.BaseParams[k] = vals[0]
			}
		}
	}

	if len(v.Templates) > 0 {
		d.AddURL = AddURL(v.AdminURL, v.Parent.ID, v.Templates[0].ID)
	}

	return d
}

// sortable lists the sort options: the allowed fields, plus the active sort
// when it is a system column outside that list.
func sortable(allowed []string, active string) []string {
	out := append([]string(nil), allowed...)

	for _, name := range out {
		if name == active {
			return out
		}
	}

	if active != "" {
		out = append(out, active)
	}

	return out
}

func templateNames(tpls []*content.Template) string {
	names := make([]string, 0, len(tpls))

	for _, t := range tpls {
		names = append(names, t.Name)
	}

	return strings.Join(names, ", ")
}

// EditURL is the host's edit view for a record.
func EditURL(adminURL string, id int64) string {
	return adminBase(adminURL) + "page/edit/?id=" + strconv.FormatInt(id, 10)
}

// AddURL is the host's creation flow for a child of parentID. A zero
// templateID lets the host ask for the template.
func AddURL(adminURL string, parentID, templateID int64) string {
	v := url.Values{}
	v.Set("parent_id", strconv.FormatInt(parentID, 10))

	if templateID != 0 {
		v.Set("template_id", strconv.FormatInt(templateID, 10))
	}

	return adminBase(adminURL) + "page/add/?" + v.Encode()
}

func adminBase(adminURL string) string {
	if adminURL == "" {
		return "/"
	}

	if !strings.HasSuffix(adminURL, "/") {
		return adminURL + "/"
	}

	return adminURL
}
