package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/pagelister/internal/content"
)

// MaxCellWidth is the display width at which text cells are cut.
const MaxCellWidth = 80

const ellipsis = "…"

// Cell formats a field value as plain text for one table cell.
func Cell(v any) string {
	return CellWidth(v, MaxCellWidth)
}

// CellWidth is [Cell] with an explicit width budget. Width <= 0 disables truncation.
func CellWidth(v any, width int) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return truncate(strings.Join(strings.Fields(val), " "), width)
	case content.Ref:
		return truncate(refTitle(val), width)
	case []content.Ref:
		titles := make([]string, 0, len(val))
		for _, r := range val {
			titles = append(titles, refTitle(r))
		}

		return truncate(strings.Join(titles, ", "), width)
	case bool:
		if val {
			return "yes"
		}

		return "no"
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return formatTime(val)
	case []string:
		return truncate(strings.Join(val, ", "), width)
	default:
		return ""
	}
}

func refTitle(r content.Ref) string {
	if r.Title != "" {
		return r.Title
	}

	return "#" + strconv.FormatInt(r.ID, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}

	return t.Format("2006-01-02 15:04")
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}

	return runewidth.Truncate(s, width, ellipsis)
}
