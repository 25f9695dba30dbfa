package render

// maxFullPager is the largest page count rendered without gaps.
const maxFullPager = 7

// PageItem is one pager entry: a page number or a gap.
type PageItem struct {
	Number  int
	Current bool
	Gap     bool
}

// PageCount returns ceil(total/pageSize), or 0 when pageSize is not positive.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}

	return (total + pageSize - 1) / pageSize
}

// Pages returns the pager entries, or nil when everything fits on one page.
//
// Up to seven pages are listed in full. Beyond that the pager shows the first
// page, a gap when current > 3, current-1..current+1 clamped to the inner
// pages, a gap when current < count-2, and the last page.
func Pages(total, pageSize, current int) []PageItem {
	if pageSize <= 0 || total <= pageSize {
		return nil
	}

	count := PageCount(total, pageSize)

	item := func(n int) PageItem {
		return PageItem{Number: n, Current: n == current}
	}

	if count <= maxFullPager {
		out := make([]PageItem, 0, count)
		for n := 1; n <= count; n++ {
			out = append(out, item(n))
		}

		return out
	}

	out := []PageItem{item(1)}

	if current > 3 {
		out = append(out, PageItem{Gap: true})
	}

	lo := max(2, current-1)
	hi := min(count-1, current+1)

	for n := lo; n <= hi; n++ {
		out = append(out, item(n))
	}

	if current < count-2 {
		out = append(out, PageItem{Gap: true})
	}

	return append(out, item(count))
}
