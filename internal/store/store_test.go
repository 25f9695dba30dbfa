package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/store"
	"github.com/calvinalkan/pagelister/internal/testutil"
)

func openSeeded(t *testing.T) *store.Store {
	t.Helper()

	return testutil.OpenShop(t, filepath.Join(t.TempDir(), "db", "pages.sqlite"))
}

func pageByPath(t *testing.T, s *store.Store, parentID int64, name string) content.Record {
	t.Helper()

	return testutil.Child(t, s, parentID, name)
}

func titles(recs []content.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}

	return out
}

func Test_Open_Creates_Database_When_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pages.sqlite")

	s, err := store.Open(t.Context(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err = os.Stat(path)
	if err != nil {
		t.Fatalf("stat db: %v", err)
	}

	if s.Path() != path {
		t.Fatalf("Path() = %q, want %q", s.Path(), path)
	}

	err = s.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening an existing database keeps the schema.
	s, err = store.Open(t.Context(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	_ = s.Close()
}

func Test_Open_Rejects_Empty_Path(t *testing.T) {
	t.Parallel()

	_, err := store.Open(t.Context(), "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func Test_Seed_Builds_Tree_With_Paths_And_Counts(t *testing.T) {
	t.Parallel()

	s, err := store.Open(t.Context(), filepath.Join(t.TempDir(), "pages.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	defer func() { _ = s.Close() }()

	f, err := store.ParseFixture([]byte(testutil.ShopYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := s.Seed(t.Context(), f)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	want := store.SeedResult{Templates: 4, Pages: 8, Settings: 6}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("seed result (-want +got):\n%s", diff)
	}

	home := pageByPath(t, s, 0, "home")
	products := pageByPath(t, s, home.ID, "products")

	if products.Path != "/home/products/" {
		t.Fatalf("path = %q", products.Path)
	}

	if products.ParentID != home.ID {
		t.Fatalf("parent = %d, want %d", products.ParentID, home.ID)
	}
}

func Test_Seed_Rolls_Back_When_Reference_Unknown(t *testing.T) {
	t.Parallel()

	s, err := store.Open(t.Context(), filepath.Join(t.TempDir(), "pages.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	defer func() { _ = s.Close() }()

	f, err := store.ParseFixture([]byte(`
templates:
  - name: product
    fields:
      - {name: category, type: page}
pages:
  - {name: a, template: product, values: {category: /nowhere/}}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, err = s.Seed(t.Context(), f)
	if err == nil {
		t.Fatal("expected error")
	}

	names, err := s.Templates(t.Context())
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	if len(names) != 0 {
		t.Fatalf("templates after rollback = %v", names)
	}
}

func Test_ParseFixture_Fails_When_Yaml_Malformed(t *testing.T) {
	t.Parallel()

	_, err := store.ParseFixture([]byte("templates: [\n"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func Test_Template_Returns_Fields_And_Children_In_Order(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	tpl, err := s.Template(t.Context(), "product")
	if err != nil {
		t.Fatalf("template: %v", err)
	}

	names := make([]string, 0, len(tpl.Fields))
	for _, f := range tpl.Fields {
		names = append(names, f.Name)
	}

	want := []string{"title", "price", "photo", "sku", "stock", "featured", "released", "category"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	container, err := s.Template(t.Context(), "data_container")
	if err != nil {
		t.Fatalf("template: %v", err)
	}

	if diff := cmp.Diff([]string{"product"}, container.ChildTemplates); diff != "" {
		t.Fatalf("children (-want +got):\n%s", diff)
	}

	_, err = s.Template(t.Context(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func Test_Record_Decodes_Typed_Values_And_Resolves_References(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	home := pageByPath(t, s, 0, "home")
	products := pageByPath(t, s, home.ID, "products")
	sandal := pageByPath(t, s, products.ID, "sandal")

	rec, err := s.Record(t.Context(), sandal.ID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if rec.Values["price"] != 19.5 {
		t.Fatalf("price = %#v", rec.Values["price"])
	}

	if rec.Values["stock"] != int64(3) {
		t.Fatalf("stock = %#v", rec.Values["stock"])
	}

	if rec.Values["featured"] != false {
		t.Fatalf("featured = %#v", rec.Values["featured"])
	}

	released, ok := rec.Values["released"].(time.Time)
	if !ok || !released.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("released = %#v", rec.Values["released"])
	}

	ref, ok := rec.Values["category"].(content.Ref)
	if !ok || ref.Title != "Shoes" {
		t.Fatalf("category = %#v", rec.Values["category"])
	}

	if !rec.Created.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("created = %v", rec.Created)
	}

	tote := pageByPath(t, s, products.ID, "tote")

	refs, ok := tote.Values["category"].([]content.Ref)
	if !ok || len(refs) != 1 || refs[0].Title != "Bags" {
		t.Fatalf("tote category = %#v", tote.Values["category"])
	}

	if !tote.Unpublished() {
		t.Fatal("tote must be unpublished")
	}

	_, err = s.Record(t.Context(), 9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func Test_Find_Sorts_Filters_And_Paginates(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	home := pageByPath(t, s, 0, "home")
	products := pageByPath(t, s, home.ID, "products")

	tests := []struct {
		name  string
		query content.Query
		want  []string
		count int
	}{
		{
			name:  "title ascending",
			query: content.Query{ParentID: products.ID, Sort: "title"},
			want:  []string{"Boot", "Sandal", "Tote 50% off"},
			count: 3,
		},
		{
			name:  "title descending",
			query: content.Query{ParentID: products.ID, Sort: "title", Desc: true},
			want:  []string{"Tote 50% off", "Sandal", "Boot"},
			count: 3,
		},
		{
			name:  "numeric field",
			query: content.Query{ParentID: products.ID, Sort: "price"},
			want:  []string{"Sandal", "Tote 50% off", "Boot"},
			count: 3,
		},
		{
			name:  "created descending",
			query: content.Query{ParentID: products.ID, Sort: "created", Desc: true},
			want:  []string{"Tote 50% off", "Sandal", "Boot"},
			count: 3,
		},
		{
			name:  "tree order",
			query: content.Query{ParentID: products.ID},
			want:  []string{"Sandal", "Boot", "Tote 50% off"},
			count: 3,
		},
		{
			name:  "second page",
			query: content.Query{ParentID: products.ID, Sort: "title", Start: 2, Limit: 2},
			want:  []string{"Tote 50% off"},
			count: 3,
		},
		{
			name:  "title substring is case insensitive",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "title", Value: "san"}},
			want:  []string{"Sandal"},
			count: 1,
		},
		{
			name:  "field substring",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "sku", Value: "B-2"}},
			want:  []string{"Boot"},
			count: 1,
		},
		{
			name:  "percent is literal",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "title", Value: "50%"}},
			want:  []string{"Tote 50% off"},
			count: 1,
		},
		{
			name:  "underscore is literal",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "sku", Value: "_"}},
			want:  []string{"Tote 50% off"},
			count: 1,
		},
		{
			name:  "reference matches referenced title",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "category", Value: "shoe"}},
			want:  []string{"Boot", "Sandal"},
			count: 2,
		},
		{
			name:  "reference list",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "category", Value: "bag"}},
			want:  []string{"Tote 50% off"},
			count: 1,
		},
		{
			name:  "unknown field matches nothing",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "nope", Value: "x"}},
			want:  []string{},
			count: 0,
		},
		{
			name:  "injection attempt in value is data",
			query: content.Query{ParentID: products.ID, Sort: "title", Match: &content.Match{Field: "title", Value: "' OR 1=1 --"}},
			want:  []string{},
			count: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recs, err := s.Find(t.Context(), tc.query)
			if err != nil {
				t.Fatalf("find: %v", err)
			}

			if diff := cmp.Diff(tc.want, titles(recs)); diff != "" {
				t.Fatalf("titles (-want +got):\n%s", diff)
			}

			n, err := s.Count(t.Context(), tc.query)
			if err != nil {
				t.Fatalf("count: %v", err)
			}

			if n != tc.count {
				t.Fatalf("count = %d, want %d", n, tc.count)
			}
		})
	}
}

func Test_Find_Rejects_Negative_Window(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	_, err := s.Find(t.Context(), content.Query{Start: -1})
	if err == nil {
		t.Fatal("expected error")
	}
}

func Test_Children_Honours_Limit(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	home := pageByPath(t, s, 0, "home")
	products := pageByPath(t, s, home.ID, "products")

	recs, err := s.Children(t.Context(), products.ID, 2)
	if err != nil {
		t.Fatalf("children: %v", err)
	}

	if diff := cmp.Diff([]string{"Sandal", "Boot"}, titles(recs)); diff != "" {
		t.Fatalf("titles (-want +got):\n%s", diff)
	}
}

func Test_Search_Matches_Titles_Across_Tree(t *testing.T) {
	t.Parallel()

	s := openSeeded(t)

	recs, err := s.Search(t.Context(), "o", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	want := []string{"Boot", "Categories", "Home", "Products", "Shoes", "Tote 50% off"}
	if diff := cmp.Diff(want, titles(recs)); diff != "" {
		t.Fatalf("titles (-want +got):\n%s", diff)
	}
}
