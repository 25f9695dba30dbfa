package content

import "net/url"

// ListContext identifies where a record listing is rendered.
type ListContext int

const (
	// ContextTree is the navigation tree.
	ContextTree ListContext = iota
	// ContextSearch is a search result listing.
	ContextSearch
	// ContextPicker is a relationship picker.
	ContextPicker
)

func (c ListContext) String() string {
	switch c {
	case ContextTree:
		return "tree"
	case ContextSearch:
		return "search"
	case ContextPicker:
		return "picker"
	default:
		return "unknown"
	}
}

// Listable asks whether Record should appear in a listing.
type Listable struct {
	Record  *Record
	Parent  *Record
	Context ListContext
	Visible bool
}

// Action is one navigation action offered for a record.
type Action struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url"`
}

// Actions is the proposed action list for Record.
type Actions struct {
	Record  *Record
	Actions []Action
}

// Visibility of a form field.
type Visibility int

const (
	// Visible fields render open.
	Visible Visibility = iota
	// Collapsed fields render closed but can be opened.
	Collapsed
	// Hidden fields are not rendered.
	Hidden
)

// FormField is one input of an edit form. Markup fields carry
// pre-rendered HTML instead of a value.
type FormField struct {
	Name       string
	Label      string
	Type       string
	Value      string
	Markup     string
	Visibility Visibility
}

// Form is the edit form the host builds for Record. Params holds the
// request's query parameters.
type Form struct {
	Record *Record
	Params url.Values
	Fields []FormField
}

// Prepend inserts f as the first field.
func (f *Form) Prepend(field FormField) {
	f.Fields = append([]FormField{field}, f.Fields...)
}

// HideAll sets every field to [Hidden].
func (f *Form) HideAll() {
	for i := range f.Fields {
		f.Fields[i].Visibility = Hidden
	}
}

// VisibleFields returns the fields that are not hidden.
func (f *Form) VisibleFields() []FormField {
	out := make([]FormField, 0, len(f.Fields))

	for _, field := range f.Fields {
		if field.Visibility != Hidden {
			out = append(out, field)
		}
	}

	return out
}
