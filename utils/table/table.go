package table

import "strings"

// Table is a header row plus data rows, every row as wide as Headers
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Markdown renders the table as a GitHub-style pipe table. Pipes inside
// cells are escaped and embedded newlines flattened so each row stays on
// one line.
func (t *Table) Markdown() string {
	if t == nil || len(t.Headers) == 0 {
		return ""
	}

	var sb strings.Builder
	writeMarkdownRow(&sb, t.Headers)

	sb.WriteString("|")
	for range t.Headers {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		writeMarkdownRow(&sb, normalize(row, len(t.Headers)))
	}
	return sb.String()
}

// Extract splits on every pipe, so pipes in cells become slashes rather
// than an escape it would not honor
var cellEscaper = strings.NewReplacer("|", "/", "\r\n", " ", "\n", " ", "\r", " ")

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(cellEscaper.Replace(c))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
