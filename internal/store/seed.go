package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/pagelister/internal/content"
)

// Fixture is a YAML seed document.
type Fixture struct {
	Templates []FixtureTemplate `yaml:"templates"`
	Pages     []FixturePage     `yaml:"pages"`
	Settings  map[string]string `yaml:"settings"`
}

// FixtureTemplate declares a template.
type FixtureTemplate struct {
	Name     string         `yaml:"name"`
	Label    string         `yaml:"label"`
	Fields   []FixtureField `yaml:"fields"`
	Children []string       `yaml:"children"`
}

// FixtureField declares a template field.
type FixtureField struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Label string `yaml:"label"`
}

// FixturePage declares a page and its subtree. Values of page fields are
// paths ("/products/boot/") or ids, or lists of them.
type FixturePage struct {
	Name     string         `yaml:"name"`
	Title    string         `yaml:"title"`
	Template string         `yaml:"template"`
	Status   string         `yaml:"status"`
	Created  time.Time      `yaml:"created"`
	Modified time.Time      `yaml:"modified"`
	Values   map[string]any `yaml:"values"`
	Children []FixturePage  `yaml:"children"`
}

// SeedResult counts what Seed inserted.
type SeedResult struct {
	Templates int
	Pages     int
	Settings  int
}

// ParseFixture decodes a YAML seed document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	return &f, nil
}

// Seed inserts f in one transaction. Top-level pages become roots.
func (s *Store) Seed(ctx context.Context, f *Fixture) (SeedResult, error) {
	var res SeedResult

	err := withTx(ctx, s.sql, func(tx *sql.Tx) error {
		sd := &seeder{
			tx:    tx,
			now:   time.Now().UTC(),
			types: make(map[string]map[string]string),
			paths: make(map[string]int64),
		}

		for _, tpl := range f.Templates {
			err := sd.insertTemplate(ctx, tpl)
			if err != nil {
				return err
			}

			res.Templates++
		}

		sort, err := sd.nextSort(ctx, 0)
		if err != nil {
			return err
		}

		for i, page := range f.Pages {
			n, err := sd.insertPage(ctx, page, 0, "/", sort+i)
			if err != nil {
				return err
			}

			res.Pages += n
		}

		err = sd.resolveReferences(ctx)
		if err != nil {
			return err
		}

		if len(f.Settings) > 0 {
			err = upsertSettings(ctx, tx, f.Settings)
			if err != nil {
				return err
			}

			res.Settings = len(f.Settings)
		}

		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed: %w", err)
	}

	return res, nil
}

type pendingRefs struct {
	id     int64
	values map[string]any
	fields []string
}

type seeder struct {
	tx      *sql.Tx
	now     time.Time
	types   map[string]map[string]string
	paths   map[string]int64
	pending []pendingRefs
}

func (sd *seeder) insertTemplate(ctx context.Context, tpl FixtureTemplate) error {
	if tpl.Name == "" {
		return fmt.Errorf("%w: template without name", ErrInvalidFixture)
	}

	result, err := sd.tx.ExecContext(ctx, "INSERT INTO templates (name, label) VALUES (?, ?)", tpl.Name, tpl.Label)
	if err != nil {
		return fmt.Errorf("insert template %q: %w", tpl.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert template %q: %w", tpl.Name, err)
	}

	types := make(map[string]string, len(tpl.Fields))

	for i, field := range tpl.Fields {
		if field.Name == "" || field.Type == "" {
			return fmt.Errorf("%w: template %q: field %d needs name and type", ErrInvalidFixture, tpl.Name, i)
		}

		_, err = sd.tx.ExecContext(ctx, `
			INSERT INTO template_fields (template_id, position, name, type, label)
			VALUES (?, ?, ?, ?, ?)`, id, i, field.Name, field.Type, field.Label)
		if err != nil {
			return fmt.Errorf("insert field %s.%s: %w", tpl.Name, field.Name, err)
		}

		types[field.Name] = field.Type
	}

	for i, child := range tpl.Children {
		_, err = sd.tx.ExecContext(ctx, `
			INSERT INTO template_children (template_id, position, child) VALUES (?, ?, ?)`, id, i, child)
		if err != nil {
			return fmt.Errorf("insert child template %s/%s: %w", tpl.Name, child, err)
		}
	}

	sd.types[tpl.Name] = types

	return nil
}

func (sd *seeder) nextSort(ctx context.Context, parentID int64) (int, error) {
	var next int

	err := sd.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sort) + 1, 0) FROM pages WHERE parent_id = ?", parentID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sort under %d: %w", parentID, err)
	}

	return next, nil
}

func (sd *seeder) fieldTypes(ctx context.Context, template string) (map[string]string, error) {
	if types, ok := sd.types[template]; ok {
		return types, nil
	}

	types, err := fieldTypes(ctx, sd.tx, template)
	if err != nil {
		return nil, err
	}

	sd.types[template] = types

	return types, nil
}

// insertPage inserts page below parentID and returns the number of pages
// inserted, including descendants.
func (sd *seeder) insertPage(ctx context.Context, page FixturePage, parentID int64, parentPath string, sort int) (int, error) {
	if page.Template == "" {
		return 0, fmt.Errorf("%w: page %q has no template", ErrInvalidFixture, page.Title)
	}

	name := page.Name
	if name == "" {
		name = slug(page.Title)
	}

	if name == "" {
		return 0, fmt.Errorf("%w: page under %s needs a name or title", ErrInvalidFixture, parentPath)
	}

	title := page.Title
	if title == "" {
		title = name
	}

	status := page.Status
	if status == "" {
		status = content.StatusPublished
	}

	if status != content.StatusPublished && status != content.StatusUnpublished {
		return 0, fmt.Errorf("%w: page %q: status %q", ErrInvalidFixture, name, status)
	}

	created := page.Created
	if created.IsZero() {
		created = sd.now
	}

	modified := page.Modified
	if modified.IsZero() {
		modified = created
	}

	types, err := sd.fieldTypes(ctx, page.Template)
	if err != nil {
		return 0, err
	}

	values := make(map[string]any, len(page.Values))

	var refFields []string

	for key, v := range page.Values {
		if types[key] == content.TypePage {
			refFields = append(refFields, key)
			values[key] = v

			continue
		}

		values[key] = normalizeValue(v)
	}

	data, err := json.Marshal(withoutRefs(values, refFields))
	if err != nil {
		return 0, fmt.Errorf("page %q: encode values: %w", name, err)
	}

	path := parentPath + name + "/"

	result, err := sd.tx.ExecContext(ctx, `
		INSERT INTO pages (parent_id, template, name, title, path, status, sort, created_at, modified_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		parentID, page.Template, name, title, path, status, sort, created.Unix(), modified.Unix(), string(data))
	if err != nil {
		return 0, fmt.Errorf("insert page %s: %w", path, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert page %s: %w", path, err)
	}

	sd.paths[path] = id

	if len(refFields) > 0 {
		sd.pending = append(sd.pending, pendingRefs{id: id, values: values, fields: refFields})
	}

	count := 1

	for i, child := range page.Children {
		n, err := sd.insertPage(ctx, child, id, path, i)
		if err != nil {
			return 0, err
		}

		count += n
	}

	return count, nil
}

// resolveReferences rewrites page-field values to ids once every page exists.
func (sd *seeder) resolveReferences(ctx context.Context) error {
	for _, p := range sd.pending {
		for _, field := range p.fields {
			resolved, err := sd.resolveRef(ctx, p.values[field])
			if err != nil {
				return fmt.Errorf("page %d: field %s: %w", p.id, field, err)
			}

			p.values[field] = resolved
		}

		data, err := json.Marshal(p.values)
		if err != nil {
			return fmt.Errorf("page %d: encode values: %w", p.id, err)
		}

		_, err = sd.tx.ExecContext(ctx, "UPDATE pages SET data = ? WHERE id = ?", string(data), p.id)
		if err != nil {
			return fmt.Errorf("page %d: update references: %w", p.id, err)
		}
	}

	return nil
}

func (sd *seeder) resolveRef(ctx context.Context, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return sd.lookupPath(ctx, x)
	case []any:
		out := make([]int64, 0, len(x))

		for _, item := range x {
			id, err := sd.resolveRef(ctx, item)
			if err != nil {
				return nil, err
			}

			if n, ok := id.(int64); ok {
				out = append(out, n)
			}
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: reference %v", ErrInvalidFixture, v)
	}
}

func (sd *seeder) lookupPath(ctx context.Context, path string) (int64, error) {
	path = "/" + strings.Trim(path, "/") + "/"
	if path == "//" {
		path = "/"
	}

	if id, ok := sd.paths[path]; ok {
		return id, nil
	}

	var id int64

	err := sd.tx.QueryRowContext(ctx, "SELECT id FROM pages WHERE path = ?", path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: no page at %s", ErrInvalidFixture, path)
	}

	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", path, err)
	}

	return id, nil
}

func withoutRefs(values map[string]any, refFields []string) map[string]any {
	if len(refFields) == 0 {
		return values
	}

	out := make(map[string]any, len(values))

	for k, v := range values {
		out[k] = v
	}

	for _, k := range refFields {
		delete(out, k)
	}

	return out
}

// normalizeValue makes YAML values JSON-encodable.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeValue(item)
		}

		return out
	default:
		return v
	}
}

// slug derives a page name from a title.
func slug(title string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)

			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')

			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
