// Package content describes the host data model the lister reads: records,
// templates, field descriptors and the query shape the host store executes.
//
// Everything here is owned by the host. The lister only reads it.
package content

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store] lookups for unknown ids or names.
var ErrNotFound = errors.New("not found")

// Field type tags.
const (
	TypeText     = "text"
	TypeTextarea = "textarea"
	TypeTitle    = "title"
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeCheckbox = "checkbox"
	TypeDatetime = "datetime"
	TypeEmail    = "email"
	TypeURL      = "url"
	TypeOptions  = "options"
	TypePage     = "page"
	TypeImage    = "image"
	TypeFile     = "file"
	TypeRepeater = "repeater"
)

// Status of a record.
const (
	StatusPublished   = "published"
	StatusUnpublished = "unpublished"
)

// Field describes one field of a template.
type Field struct {
	Name  string
	Type  string
	Label string
}

// Template is a content type with its ordered field set.
type Template struct {
	ID     int64
	Name   string
	Label  string
	Fields []Field

	// ChildTemplates lists the template names allowed below records of this template.
	ChildTemplates []string
}

// Ref is a resolved reference to another record.
type Ref struct {
	ID    int64
	Title string
}

// Record is one page in the host tree.
//
// Values holds field values keyed by field name. A value is one of string,
// int64, float64, bool, time.Time, [Ref], []Ref or nil.
type Record struct {
	ID       int64
	ParentID int64
	Template string
	Name     string
	Title    string
	Path     string
	Status   string
	Created  time.Time
	Modified time.Time
	Values   map[string]any
}

// Unpublished reports whether the record is a draft.
func (r Record) Unpublished() bool {
	return r.Status == StatusUnpublished
}

// Value returns the named value. Title and name resolve to the record columns.
func (r Record) Value(name string) any {
	switch name {
	case "title":
		return r.Title
	case "name":
		return r.Name
	}

	if r.Values == nil {
		return nil
	}

	return r.Values[name]
}

// Match is a substring clause on one field.
type Match struct {
	Field string
	Value string
}

// Query selects the direct children of one parent.
// A nil Match means no search clause. Limit 0 means no limit.
type Query struct {
	ParentID int64
	Match    *Match
	Sort     string
	Desc     bool
	Start    int
	Limit    int
}

// Store is the record store capability the lister consumes.
type Store interface {
	// Record returns the record with the given id or [ErrNotFound].
	Record(ctx context.Context, id int64) (*Record, error)

	// Template returns the template with the given name or [ErrNotFound].
	Template(ctx context.Context, name string) (*Template, error)

	// Children returns up to limit direct children of parentID in sort order.
	Children(ctx context.Context, parentID int64, limit int) ([]Record, error)

	// Find executes q and returns the matching page of records.
	Find(ctx context.Context, q Query) ([]Record, error)

	// Count returns the number of records matching q, ignoring Start and Limit.
	Count(ctx context.Context, q Query) (int, error)
}
