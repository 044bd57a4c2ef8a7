// Package display renders tables for the terminal.
package display

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/kris-hansen/pfmea/utils/table"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	oddRowStyle = cellStyle.Foreground(lipgloss.Color("245"))
)

// HeaderTitle title-cases a column name for display ("process name" -> "Process Name")
func HeaderTitle(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// Render draws t as a bordered table. A width <= 0 leaves the table at its
// natural width.
func Render(t *table.Table, width int) string {
	if t == nil || len(t.Headers) == 0 {
		return ""
	}

	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = HeaderTitle(h)
	}

	lt := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case row%2 == 1:
				return oddRowStyle
			default:
				return cellStyle
			}
		})
	if width > 0 {
		lt = lt.Width(width)
	}
	return lt.String()
}

// TerminalWidth returns stdout's width, or 0 when stdout is not a terminal
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

// Summary is a one-line description of a table's size
func Summary(t *table.Table) string {
	return fmt.Sprintf("%d rows x %d columns", t.Len(), len(t.Headers))
}
