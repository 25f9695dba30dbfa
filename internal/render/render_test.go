package render_test

import (
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/filter"
	"github.com/calvinalkan/pagelister/internal/render"
)

func stateFrom(t *testing.T, raw string, fields []string) (filter.State, []string) {
	t.Helper()

	params, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, state, allowed := filter.New(nil, 50).Build(7, fields, params)

	return state, allowed
}

func baseView(t *testing.T, raw string) render.View {
	t.Helper()

	fields := []string{"sku", "category"}
	state, allowed := stateFrom(t, raw, fields)

	return render.View{
		Parent:   &content.Record{ID: 7, Title: "Products", Template: "data_container", Path: "/data/products/"},
		Fields:   fields,
		Labels:   map[string]string{"sku": "SKU"},
		Total:    2,
		PageSize: 50,
		State:    state,
		Allowed:  allowed,
		AdminURL: "/admin",
		Templates: []*content.Template{
			{ID: 3, Name: "product"},
			{ID: 4, Name: "service"},
		},
		Rows: []content.Record{
			{
				ID: 11, Title: "Red shoe", Path: "/data/products/red-shoe/", Status: content.StatusPublished,
				Values: map[string]any{"sku": "RS-1", "category": content.Ref{ID: 2, Title: "Shoes"}},
			},
			{
				ID: 12, Title: "Blue hat", Path: "/data/products/blue-hat/", Status: content.StatusUnpublished,
				Values: map[string]any{"sku": "BH-2", "category": []content.Ref{{ID: 3, Title: "Hats"}, {ID: 4, Title: "Sale"}}},
			},
		},
		ShowHelp: true,
	}
}

func mustRender(t *testing.T, v render.View) string {
	t.Helper()

	out, err := render.Overview(v)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	return out
}

// Contract: sections render in the fixed order styles, header, help, filters, add, table, pager.
func Test_Overview_Renders_Sections_In_Order(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	v.Total = 125
	out := mustRender(t, v)

	markers := []string{"<style>", `class="dpl-meta"`, `class="dpl-help"`, `class="dpl-filters"`, `class="dpl-add"`, `class="dpl-table"`, `class="dpl-pager"`}

	last := -1

	for _, m := range markers {
		idx := strings.Index(out, m)
		if idx < 0 {
			t.Fatalf("missing %s in:\n%s", m, out)
		}

		if idx < last {
			t.Fatalf("%s rendered out of order", m)
		}

		last = idx
	}
}

func Test_Overview_Header_Uses_Singular_And_Plural(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	out := mustRender(t, v)
	assertContains(t, out, "<strong>Products</strong> &ndash; 2 entries | Templates: product, service")

	v.Total = 1
	v.Rows = v.Rows[:1]
	out = mustRender(t, v)
	assertContains(t, out, "1 entry |")
}

func Test_Overview_Table_Renders_Cells_Status_And_Actions(t *testing.T) {
	t.Parallel()

	out := mustRender(t, baseView(t, ""))

	assertContains(t, out, "<th>Title</th><th>SKU</th><th>category</th><th>Status</th><th>Actions</th>")
	assertContains(t, out, `<a href="/admin/page/edit/?id=11"><strong>Red shoe</strong></a>`)
	assertContains(t, out, "<td>Shoes</td>")
	assertContains(t, out, "<td>Hats, Sale</td>")
	assertContains(t, out, `<span class="dpl-status-draft">Draft</span>`)
	assertContains(t, out, `<span class="dpl-status-published">Published</span>`)
	assertNotContains(t, out, "fa-eye")

	v := baseView(t, "")
	v.ShowView = true
	out = mustRender(t, v)
	assertContains(t, out, `<a href="/data/products/red-shoe/" target="_blank"`)
}

// Contract: an empty result renders the empty-state block instead of a table.
func Test_Overview_Renders_Empty_State_When_No_Rows(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	v.Rows = nil
	v.Total = 0

	out := mustRender(t, v)
	assertContains(t, out, `class="dpl-empty"`)
	assertContains(t, out, "No entries yet.")
	assertNotContains(t, out, "<table")
	assertNotContains(t, out, "dpl-pager")

	v = baseView(t, "q=zzz")
	v.Rows = nil
	v.Total = 0

	out = mustRender(t, v)
	assertContains(t, out, "No entries match &ldquo;zzz&rdquo;.")
}

func Test_Overview_Help_Requires_Flag_And_Fields(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	out := mustRender(t, v)
	assertContains(t, out, "Fields: sku, category")
	assertContains(t, out, "<code>product</code>, <code>service</code>")

	v.ShowHelp = false
	assertNotContains(t, mustRender(t, v), "dpl-help")

	v = baseView(t, "")
	v.Fields = nil
	assertNotContains(t, mustRender(t, v), "dpl-help")
}

func Test_Overview_Add_Button_Targets_First_Template(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	out := mustRender(t, v)
	assertContains(t, out, `href="/admin/page/add/?parent_id=7&amp;template_id=3"`)

	v.Templates = nil
	out = mustRender(t, v)
	assertNotContains(t, out, "dpl-add")
	assertNotContains(t, out, "Templates:")
}

// Contract: pager is suppressed when everything fits on one page.
func Test_Overview_Suppresses_Pager_When_Total_Fits(t *testing.T) {
	t.Parallel()

	v := baseView(t, "")
	v.Total = 40
	assertNotContains(t, mustRender(t, v), "dpl-pager")
}

// Contract: every pager link carries q, by, sort and dir plus its own page.
func Test_Overview_Pager_Links_Carry_Filter_State(t *testing.T) {
	t.Parallel()

	v := baseView(t, "q=shoe&by=sku&sort=category&dir=desc&pg=2")
	v.Total = 125

	out := mustRender(t, v)

	assertContains(t, out, `<span class="current" aria-current="page">2</span>`)

	hrefs := regexp.MustCompile(`<a href="([^"]+)">(\d)</a>`).FindAllStringSubmatch(out, -1)
	if len(hrefs) != 2 {
		t.Fatalf("pager links = %d, want 2 (pages 1 and 3)\n%s", len(hrefs), out)
	}

	for _, m := range hrefs {
		link := strings.ReplaceAll(m[1], "&amp;", "&")

		u, err := url.Parse(link)
		if err != nil {
			t.Fatalf("parse %q: %v", link, err)
		}

		q := u.Query()
		if q.Get("id") != "7" || q.Get("q") != "shoe" || q.Get("by") != "sku" || q.Get("sort") != "category" || q.Get("dir") != "desc" {
			t.Fatalf("link %q lost filter state", link)
		}

		wantPage := m[2]
		if wantPage == "1" {
			wantPage = ""
		}

		if q.Get("pg") != wantPage {
			t.Fatalf("link %q: pg = %q, want %q", link, q.Get("pg"), wantPage)
		}
	}
}

func Test_Overview_Filter_Bar_Reflects_State(t *testing.T) {
	t.Parallel()

	out := mustRender(t, baseView(t, "q=red&by=sku&sort=modified&dir=desc"))

	assertContains(t, out, `<form method="get" action="/admin/page/edit/"`)
	assertContains(t, out, `<input type="hidden" name="id" value="7">`)
	assertContains(t, out, `name="q" value="red"`)
	assertContains(t, out, `<option value="sku" selected>sku</option>`)
	assertContains(t, out, `<option value="modified" selected>modified</option>`)
	assertContains(t, out, `<option value="desc" selected>desc</option>`)
	assertContains(t, out, `<a class="ui-button" href="/admin/page/edit/?id=7">Reset</a>`)
}

// Contract: every dynamic string is escaped before it reaches the markup.
func Test_Overview_Escapes_Dynamic_Values(t *testing.T) {
	t.Parallel()

	v := baseView(t, "q=%3Cscript%3Ealert(1)%3C%2Fscript%3E")
	v.Parent.Title = `<img src=x onerror=alert(1)>`
	v.Templates[0].Name = `"><b>tpl`
	v.Rows[0].Title = `<script>alert("row")</script>`
	v.Rows[0].Values["sku"] = `' onmouseover='x`
	v.Rows[0].Path = `javascript:alert(1)`
	v.ShowView = true

	out := mustRender(t, v)

	for _, raw := range []string{"<img src=x", "<script>alert", `"><b>tpl`, "' onmouseover='x", `href="javascript:`} {
		assertNotContains(t, out, raw)
	}

	assertContains(t, out, "&lt;img src=x onerror=alert(1)&gt;")
	assertContains(t, out, "&lt;script&gt;alert(&#34;row&#34;)&lt;/script&gt;")
}

func Test_Cell_Formats_Values(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("abcdefghij", 10)

	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string collapses whitespace", "a\n  b\tc", "a b c"},
		{"long string truncated", long, long[:79] + "…"},
		{"wide runes truncated by width", strings.Repeat("漢", 50), strings.Repeat("漢", 39) + "…"},
		{"ref", content.Ref{ID: 1, Title: "One"}, "One"},
		{"ref without title", content.Ref{ID: 9}, "#9"},
		{"refs", []content.Ref{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}, "A, B"},
		{"empty refs", []content.Ref{}, ""},
		{"bool true", true, "yes"},
		{"bool false", false, "no"},
		{"int", int64(42), "42"},
		{"float", 19.5, "19.5"},
		{"date", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "2026-03-01"},
		{"datetime", time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC), "2026-03-01 14:05"},
		{"zero time", time.Time{}, ""},
		{"unsupported", struct{}{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := render.Cell(tc.in); got != tc.want {
				t.Fatalf("Cell(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func Test_Terminal_Renders_Table_And_Footer(t *testing.T) {
	t.Parallel()

	v := baseView(t, "q=shoe&by=sku")
	v.Total = 125

	out := render.Terminal(v)

	for _, want := range []string{"Products", "125 entries", "search sku~\"shoe\"", "SKU", "Red shoe", "Hats, Sale", "draft", "page 1 of 3"} {
		assertContains(t, out, want)
	}

	v.Rows = nil
	v.Total = 0
	assertContains(t, render.Terminal(v), "(no entries)")
}

func assertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

func assertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
