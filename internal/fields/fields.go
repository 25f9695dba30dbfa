// Package fields picks the columns shown for a container's children.
package fields

import (
	"slices"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/settings"
)

// allowedTypes are the scalar-ish field types that render as a table cell.
var allowedTypes = map[string]bool{
	content.TypeText:     true,
	content.TypeTextarea: true,
	content.TypeTitle:    true,
	content.TypeInteger:  true,
	content.TypeFloat:    true,
	content.TypeCheckbox: true,
	content.TypeDatetime: true,
	content.TypeEmail:    true,
	content.TypeURL:      true,
	content.TypeOptions:  true,
	content.TypePage:     true,
}

// systemNames are never offered as extra columns. Title is always shown first.
var systemNames = map[string]bool{
	"title":    true,
	"name":     true,
	"sort":     true,
	"created":  true,
	"modified": true,
	"status":   true,
}

// IsAllowed reports whether f can be shown as a column.
func IsAllowed(f content.Field) bool {
	return allowedTypes[f.Type] && !systemNames[f.Name]
}

// Allowed returns the names of tpl's allowed fields in declaration order.
func Allowed(tpl *content.Template) []string {
	if tpl == nil {
		return nil
	}

	out := make([]string, 0, len(tpl.Fields))

	for _, f := range tpl.Fields {
		if IsAllowed(f) {
			out = append(out, f.Name)
		}
	}

	return out
}

// Select returns the ordered column names for c given the candidate child
// templates. An empty result means there is nothing to render.
func Select(c settings.Container, templates []*content.Template) []string {
	if len(templates) == 0 {
		return nil
	}

	first := Allowed(templates[0])

	if c.Mode == settings.ModeManual {
		out := make([]string, 0, len(c.Fields))

		for _, name := range c.Fields {
			if slices.Contains(first, name) && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}

		return out
	}

	n := c.NumFields
	if n <= 0 {
		return nil
	}

	if c.Strategy == settings.StrategyCommon && len(templates) > 1 {
		return truncate(common(first, templates[1:]), n)
	}

	return truncate(first, n)
}

// common keeps the names of first that every other template also allows.
func common(first []string, rest []*content.Template) []string {
	out := slices.Clone(first)

	for _, tpl := range rest {
		set := Allowed(tpl)
		out = slices.DeleteFunc(out, func(name string) bool {
			return !slices.Contains(set, name)
		})
	}

	return out
}

func truncate(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}

	return names
}
