package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/calvinalkan/pagelister/internal/content"
)

// terminalCellWidth is narrower than the HTML budget to fit a terminal.
const terminalCellWidth = 32

var (
	termTitleStyle  = lipgloss.NewStyle().Bold(true)
	termHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	termCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	termDraftStyle  = termCellStyle.Foreground(lipgloss.Color("3"))
	termMutedStyle  = lipgloss.NewStyle().Faint(true)
)

// Terminal renders v as a terminal table with a header and page footer.
func Terminal(v View) string {
	d := newData(v)

	var b strings.Builder

	b.WriteString(termTitleStyle.Render(d.Parent.Title))
	fmt.Fprintf(&b, " - %d %s", d.Total, plural(d.Total, "entry", "entries"))

	if len(d.Templates) > 0 {
		b.WriteString(" | templates: " + templateNames(d.Templates))
	}

	b.WriteString("\n")

	if d.State.Search() {
		fmt.Fprintf(&b, "search %s~%q", d.State.By, d.State.Query)
		b.WriteString("  ")
	}

	fmt.Fprintf(&b, "sort %s %s\n", d.State.Sort, d.State.Dir)

	if len(d.Rows) == 0 {
		b.WriteString(termMutedStyle.Render("(no entries)"))
		b.WriteString("\n")

		return b.String()
	}

	headers := []string{"ID", "Title"}
	for _, f := range d.Fields {
		label := d.Labels[f]
		if label == "" {
			label = f
		}

		headers = append(headers, label)
	}

	headers = append(headers, "Status")

	rows := make([][]string, 0, len(d.Rows))
	drafts := make(map[int]bool)

	for i, rec := range d.Rows {
		row := []string{fmt.Sprint(rec.ID), CellWidth(rec.Title, terminalCellWidth)}

		for _, f := range d.Fields {
			row = append(row, CellWidth(rec.Value(f), terminalCellWidth))
		}

		row = append(row, statusLabel(rec))
		rows = append(rows, row)
		drafts[i] = rec.Unpublished()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return termHeaderStyle
			case drafts[row-(table.HeaderRow+1)]:
				return termDraftStyle
			default:
				return termCellStyle
			}
		})

	b.WriteString(t.String())
	b.WriteString("\n")

	if count := PageCount(d.Total, d.PageSize); count > 1 {
		b.WriteString(termMutedStyle.Render(fmt.Sprintf("page %d of %d", d.State.Page, count)))
		b.WriteString("\n")
	}

	return b.String()
}

func statusLabel(rec content.Record) string {
	if rec.Unpublished() {
		return "draft"
	}

	return "published"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
