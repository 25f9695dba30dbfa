// Package filter turns raw request parameters into a child query and the
// filter state echoed back into links.
//
// Build never fails: every missing or malformed parameter degrades to its
// default (search field and sort field "title", ascending, page 1).
package filter

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/pagelister/internal/content"
)

// Request parameter names.
const (
	ParamSearch = "q"
	ParamBy     = "by"
	ParamSort   = "sort"
	ParamDir    = "dir"
	ParamPage   = "pg"
)

// Sort directions.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// maxPage bounds the page number so offsets cannot overflow.
const maxPage = math.MaxInt32

// DefaultField is searched and sorted on when no valid field is given.
const DefaultField = "title"

// sortableSystem are record columns that can be sorted on without being columns.
var sortableSystem = []string{"name", "created", "modified"}

// Params reads raw request parameters. [url.Values] satisfies it.
type Params interface {
	Get(key string) string
}

// State is the filter state of one request.
type State struct {
	Query string // Query is the sanitized search text; empty means no search.
	By    string // By is the searched field.
	Sort  string
	Dir   string
	Page  int
}

// Search reports whether a search clause is active.
func (s State) Search() bool {
	return s.Query != ""
}

// Active returns the search state echoed into links and headers:
// nil without search text, otherwise by and q.
func (s State) Active() map[string]string {
	if !s.Search() {
		return nil
	}

	return map[string]string{ParamBy: s.By, ParamSearch: s.Query}
}

// Desc reports whether the sort is descending.
func (s State) Desc() bool {
	return s.Dir == DirDesc
}

// Values encodes the state for a link to page. Defaults are omitted so that
// parsing the values again yields the same state. A search field chosen
// without search text is kept so the field dropdown survives paging.
func (s State) Values(page int) url.Values {
	v := url.Values{}

	if s.Search() {
		v.Set(ParamSearch, s.Query)
	}

	if s.By != "" && s.By != DefaultField {
		v.Set(ParamBy, s.By)
	}

	if s.Sort != "" && s.Sort != DefaultField {
		v.Set(ParamSort, s.Sort)
	}

	if s.Desc() {
		v.Set(ParamDir, DirDesc)
	}

	if page > 1 {
		v.Set(ParamPage, strconv.Itoa(page))
	}

	return v
}

// Link returns base with the encoded state for page appended.
func (s State) Link(base string, page int) string {
	q := s.Values(page).Encode()
	if q == "" {
		return base
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}

	return base + sep + q
}

// Builder builds child queries.
type Builder struct {
	Sanitizer Sanitizer
	PageSize  int
}

// New returns a Builder. A nil sanitizer selects [DefaultSanitizer].
func New(san Sanitizer, pageSize int) *Builder {
	if san == nil {
		san = DefaultSanitizer{}
	}

	return &Builder{Sanitizer: san, PageSize: pageSize}
}

// Build returns the query for the direct children of parentID, the filter
// state and the field names allowed for search and sort.
func (b *Builder) Build(parentID int64, fieldNames []string, params Params) (content.Query, State, []string) {
	san := b.Sanitizer
	if san == nil {
		san = DefaultSanitizer{}
	}

	allowed := make([]string, 0, len(fieldNames)+1)
	allowed = append(allowed, DefaultField)

	for _, name := range fieldNames {
		if !slices.Contains(allowed, name) {
			allowed = append(allowed, name)
		}
	}

	get := func(key string) string {
		if params == nil {
			return ""
		}

		return params.Get(key)
	}

	state := State{
		By:   san.Name(get(ParamBy)),
		Sort: san.Name(get(ParamSort)),
		Dir:  DirAsc,
		Page: min(max(1, san.Int(get(ParamPage))), maxPage),
	}

	if !slices.Contains(allowed, state.By) {
		state.By = DefaultField
	}

	if !slices.Contains(allowed, state.Sort) && !slices.Contains(sortableSystem, state.Sort) {
		state.Sort = DefaultField
	}

	if strings.EqualFold(strings.TrimSpace(get(ParamDir)), DirDesc) {
		state.Dir = DirDesc
	}

	state.Query = san.Text(get(ParamSearch))

	q := content.Query{
		ParentID: parentID,
		Sort:     state.Sort,
		Desc:     state.Desc(),
	}

	if state.Search() {
		q.Match = &content.Match{Field: state.By, Value: state.Query}
	}

	if b.PageSize > 0 {
		q.Limit = b.PageSize
		q.Start = (state.Page - 1) * b.PageSize
	}

	return q, state, allowed
}
