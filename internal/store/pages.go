package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/pagelister/internal/content"
)

var _ content.Store = (*Store)(nil)

const pageColumns = `p.id, p.parent_id, p.template, p.name, p.title, p.path, p.status,
	p.created_at, p.modified_at, p.data`

// Record returns the page with the given id.
func (s *Store) Record(ctx context.Context, id int64) (*content.Record, error) {
	recs, err := s.queryPages(ctx, "SELECT "+pageColumns+" FROM pages p WHERE p.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", id, err)
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}

	return &recs[0], nil
}

// Children returns the direct children of parentID in tree order. A limit of
// zero returns all of them.
func (s *Store) Children(ctx context.Context, parentID int64, limit int) ([]content.Record, error) {
	query := "SELECT " + pageColumns + " FROM pages p WHERE p.parent_id = ? ORDER BY p.sort, p.id"
	args := []any{parentID}

	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	recs, err := s.queryPages(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("children of %d: %w", parentID, err)
	}

	return recs, nil
}

// Find returns one page of q's matches.
func (s *Store) Find(ctx context.Context, q content.Query) ([]content.Record, error) {
	if q.Start < 0 || q.Limit < 0 {
		return nil, errors.New("find: start/limit must be non-negative")
	}

	where, args, err := s.whereClause(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	query := strings.Builder{}
	query.WriteString("SELECT " + pageColumns + " FROM pages p")
	query.WriteString(where)

	order, orderArgs := orderClause(q.Sort, q.Desc)
	query.WriteString(order)

	args = append(args, orderArgs...)

	if q.Limit > 0 {
		query.WriteString(" LIMIT ?")

		args = append(args, q.Limit)

		if q.Start > 0 {
			query.WriteString(" OFFSET ?")

			args = append(args, q.Start)
		}
	} else if q.Start > 0 {
		// SQLite allows LIMIT -1 to indicate "no limit" while applying OFFSET.
		query.WriteString(" LIMIT -1 OFFSET ?")

		args = append(args, q.Start)
	}

	recs, err := s.queryPages(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	return recs, nil
}

// Count returns the number of q's matches.
func (s *Store) Count(ctx context.Context, q content.Query) (int, error) {
	where, args, err := s.whereClause(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	var n int

	err = s.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages p"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	return n, nil
}

// Search returns pages anywhere in the tree whose title contains text.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]content.Record, error) {
	query := "SELECT " + pageColumns + ` FROM pages p
		WHERE p.title LIKE ? ESCAPE '\' ORDER BY p.title COLLATE NOCASE, p.id`
	args := []any{likePattern(text)}

	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	recs, err := s.queryPages(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return recs, nil
}

func (s *Store) whereClause(ctx context.Context, q content.Query) (string, []any, error) {
	clauses := []string{"p.parent_id = ?"}
	args := []any{q.ParentID}

	if q.Match != nil && q.Match.Value != "" {
		pattern := likePattern(q.Match.Value)

		switch q.Match.Field {
		case "title", "name":
			clauses = append(clauses, "p."+q.Match.Field+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		default:
			isRef, err := s.isPageField(ctx, q.Match.Field)
			if err != nil {
				return "", nil, err
			}

			if isRef {
				// References match on the referenced page's title.
				clauses = append(clauses, `EXISTS (
					SELECT 1 FROM json_each(p.data, ?) j
					JOIN pages r ON r.id = j.value
					WHERE r.title LIKE ? ESCAPE '\')`)
			} else {
				clauses = append(clauses, `CAST(json_extract(p.data, ?) AS TEXT) LIKE ? ESCAPE '\'`)
			}

			args = append(args, jsonPath(q.Match.Field), pattern)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func orderClause(field string, desc bool) (string, []any) {
	dir := ""
	if desc {
		dir = " DESC"
	}

	switch field {
	case "":
		return " ORDER BY p.sort" + dir + ", p.id", nil
	case "title", "name":
		return " ORDER BY p." + field + " COLLATE NOCASE" + dir + ", p.id", nil
	case "created":
		return " ORDER BY p.created_at" + dir + ", p.id", nil
	case "modified":
		return " ORDER BY p.modified_at" + dir + ", p.id", nil
	default:
		return " ORDER BY json_extract(p.data, ?)" + dir + ", p.id", []any{jsonPath(field)}
	}
}

func (s *Store) isPageField(ctx context.Context, name string) (bool, error) {
	var ok bool

	err := s.sql.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM template_fields WHERE name = ? AND type = ?)",
		name, content.TypePage).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("field type %q: %w", name, err)
	}

	return ok, nil
}

// jsonPath addresses a top-level key of the data column.
func jsonPath(name string) string {
	return `$."` + strings.ReplaceAll(name, `"`, "") + `"`
}

// likePattern builds a substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	return "%" + r.Replace(s) + "%"
}

// queryPages runs a page query, decodes field values by template field type
// and resolves page references to titles.
func (s *Store) queryPages(ctx context.Context, query string, args ...any) ([]content.Record, error) {
	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	type rawPage struct {
		rec  content.Record
		data string
	}

	var raw []rawPage

	for rows.Next() {
		var (
			page       rawPage
			createdAt  int64
			modifiedAt int64
		)

		scanErr := rows.Scan(
			&page.rec.ID,
			&page.rec.ParentID,
			&page.rec.Template,
			&page.rec.Name,
			&page.rec.Title,
			&page.rec.Path,
			&page.rec.Status,
			&createdAt,
			&modifiedAt,
			&page.data,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan: %w", scanErr)
		}

		page.rec.Created = time.Unix(createdAt, 0).UTC()
		page.rec.Modified = time.Unix(modifiedAt, 0).UTC()
		raw = append(raw, page)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	_ = rows.Close()

	recs := make([]content.Record, 0, len(raw))
	types := make(map[string]map[string]string)
	refs := make(map[int64]string)

	for _, page := range raw {
		ftypes, ok := types[page.rec.Template]
		if !ok {
			ftypes, err = fieldTypes(ctx, s.sql, page.rec.Template)
			if err != nil {
				return nil, err
			}

			types[page.rec.Template] = ftypes
		}

		page.rec.Values, err = decodeValues(page.data, ftypes, refs)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.rec.ID, err)
		}

		recs = append(recs, page.rec)
	}

	if len(refs) == 0 {
		return recs, nil
	}

	err = s.resolveTitles(ctx, refs)
	if err != nil {
		return nil, err
	}

	for i := range recs {
		for name, v := range recs[i].Values {
			switch ref := v.(type) {
			case content.Ref:
				ref.Title = refs[ref.ID]
				recs[i].Values[name] = ref
			case []content.Ref:
				for j := range ref {
					ref[j].Title = refs[ref[j].ID]
				}
			}
		}
	}

	return recs, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func fieldTypes(ctx context.Context, db querier, template string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT f.name, f.type
		FROM template_fields f
		JOIN templates t ON t.id = f.template_id
		WHERE t.name = ?`, template)
	if err != nil {
		return nil, fmt.Errorf("field types %q: %w", template, err)
	}

	defer func() { _ = rows.Close() }()

	out := make(map[string]string)

	for rows.Next() {
		var name, typ string

		scanErr := rows.Scan(&name, &typ)
		if scanErr != nil {
			return nil, fmt.Errorf("field types %q: scan: %w", template, scanErr)
		}

		out[name] = typ
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("field types %q: rows: %w", template, err)
	}

	return out, nil
}

// resolveTitles fills refs (id -> title) in one query.
func (s *Store) resolveTitles(ctx context.Context, refs map[int64]string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(refs)), ",")

	args := make([]any, 0, len(refs))
	for id := range refs {
		args = append(args, id)
	}

	rows, err := s.sql.QueryContext(ctx, "SELECT id, title FROM pages WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("resolve references: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id    int64
			title string
		)

		scanErr := rows.Scan(&id, &title)
		if scanErr != nil {
			return fmt.Errorf("resolve references: scan: %w", scanErr)
		}

		refs[id] = title
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("resolve references: rows: %w", err)
	}

	return nil
}

// decodeValues converts the JSON data column into typed values. Page
// references are registered in refs for title resolution.
func decodeValues(data string, ftypes map[string]string, refs map[int64]string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var raw map[string]any

	err := dec.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}

	out := make(map[string]any, len(raw))

	for name, v := range raw {
		out[name] = convertValue(ftypes[name], v, refs)
	}

	return out, nil
}

func convertValue(typ string, v any, refs map[int64]string) any {
	if v == nil {
		return nil
	}

	switch typ {
	case content.TypeInteger:
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i
			}

			if f, err := n.Float64(); err == nil {
				return int64(f)
			}
		}
	case content.TypeFloat:
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case content.TypeCheckbox:
		switch b := v.(type) {
		case bool:
			return b
		case json.Number:
			return b.String() != "0"
		}
	case content.TypeDatetime:
		if str, ok := v.(string); ok {
			if t, ok := parseTime(str); ok {
				return t
			}
		}
	case content.TypePage:
		return convertRefs(v, refs)
	}

	switch x := v.(type) {
	case string:
		return x
	case bool:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}

		f, _ := x.Float64()

		return f
	default:
		return fmt.Sprint(x)
	}
}

func convertRefs(v any, refs map[int64]string) any {
	toRef := func(x any) (content.Ref, bool) {
		n, ok := x.(json.Number)
		if !ok {
			return content.Ref{}, false
		}

		id, err := n.Int64()
		if err != nil {
			return content.Ref{}, false
		}

		refs[id] = ""

		return content.Ref{ID: id}, true
	}

	if list, ok := v.([]any); ok {
		out := make([]content.Ref, 0, len(list))

		for _, x := range list {
			if ref, ok := toRef(x); ok {
				out = append(out, ref)
			}
		}

		return out
	}

	if ref, ok := toRef(v); ok {
		return ref
	}

	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", time.DateOnly}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// Template returns the template with the given name.
func (s *Store) Template(ctx context.Context, name string) (*content.Template, error) {
	tpl := content.Template{Name: name}

	err := s.sql.QueryRowContext(ctx, "SELECT id, label FROM templates WHERE name = ?", name).Scan(&tpl.ID, &tpl.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}

	rows, err := s.sql.QueryContext(ctx, `
		SELECT name, type, label FROM template_fields
		WHERE template_id = ? ORDER BY position`, tpl.ID)
	if err != nil {
		return nil, fmt.Errorf("template %q: fields: %w", name, err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var f content.Field

		scanErr := rows.Scan(&f.Name, &f.Type, &f.Label)
		if scanErr != nil {
			return nil, fmt.Errorf("template %q: fields: scan: %w", name, scanErr)
		}

		tpl.Fields = append(tpl.Fields, f)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("template %q: fields: rows: %w", name, err)
	}

	_ = rows.Close()

	children, err := s.sql.QueryContext(ctx, `
		SELECT child FROM template_children
		WHERE template_id = ? ORDER BY position`, tpl.ID)
	if err != nil {
		return nil, fmt.Errorf("template %q: children: %w", name, err)
	}

	defer func() { _ = children.Close() }()

	for children.Next() {
		var child string

		scanErr := children.Scan(&child)
		if scanErr != nil {
			return nil, fmt.Errorf("template %q: children: scan: %w", name, scanErr)
		}

		tpl.ChildTemplates = append(tpl.ChildTemplates, child)
	}

	err = children.Err()
	if err != nil {
		return nil, fmt.Errorf("template %q: children: rows: %w", name, err)
	}

	return &tpl, nil
}

// Templates lists template names in alphabetical order.
func (s *Store) Templates(ctx context.Context) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx, "SELECT name FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var name string

		scanErr := rows.Scan(&name)
		if scanErr != nil {
			return nil, fmt.Errorf("templates: scan: %w", scanErr)
		}

		names = append(names, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("templates: rows: %w", err)
	}

	return names, nil
}
