// Package table pulls pipe-delimited markdown tables out of free-form model
// output and normalizes them to a fixed column schema.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kris-hansen/pfmea/utils/config"
)

var (
	// ErrMissingTable means no line of the input contains a '|'.
	ErrMissingTable = errors.New("no table found in response")
	// ErrMissingSeparator means a header line was found but no separator line followed it.
	ErrMissingSeparator = errors.New("no table separator found after header")
)

// SeparatorRule selects how the header/data boundary line is recognized
type SeparatorRule int

const (
	// SeparatorStrict matches lines made only of '-', '|', ':' and spaces
	// containing at least one '-'.
	SeparatorStrict SeparatorRule = iota
	// SeparatorLoose matches any line containing "---".
	SeparatorLoose
)

func (r SeparatorRule) String() string {
	switch r {
	case SeparatorLoose:
		return "loose"
	default:
		return "strict"
	}
}

// ParseSeparatorRule maps "strict" or "loose" (case-insensitive) to a rule
func ParseSeparatorRule(s string) (SeparatorRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return SeparatorStrict, nil
	case "loose":
		return SeparatorLoose, nil
	default:
		return SeparatorStrict, fmt.Errorf("unknown separator rule %q (want strict or loose)", s)
	}
}

// Options tunes Extract
type Options struct {
	Separator SeparatorRule
}

// RowAdjustment records a data row whose field count was padded or truncated
type RowAdjustment struct {
	Row  int `json:"row"` // zero-based index into Table.Rows
	Got  int `json:"got"`
	Want int `json:"want"`
}

// Padded reports whether the row was short and got empty fields appended
func (a RowAdjustment) Padded() bool { return a.Got < a.Want }

// Result is the outcome of a successful extraction
type Result struct {
	Table         *Table
	SourceHeaders []string // header row as written in the response
	Adjustments   []RowAdjustment
}

// Extract locates the first pipe table in rawText and returns its data rows,
// each padded or truncated to len(expectedColumns). The returned table's
// headers are expectedColumns; if expectedColumns is empty the table's own
// header row is used as the schema.
func Extract(rawText string, expectedColumns []string, opts Options) (*Result, error) {
	lines := tableLines(rawText)
	if len(lines) == 0 {
		return nil, ErrMissingTable
	}

	sourceHeaders := splitRow(lines[0])

	sepIdx := -1
	for i := 1; i < len(lines); i++ {
		if isSeparator(lines[i], opts.Separator) {
			sepIdx = i
			break
		}
	}
	if sepIdx < 0 {
		return nil, fmt.Errorf("%w (header %q, %s rule)", ErrMissingSeparator, strings.Join(sourceHeaders, " | "), opts.Separator)
	}

	headers := expectedColumns
	if len(headers) == 0 {
		headers = sourceHeaders
	}
	headers = append([]string(nil), headers...)
	want := len(headers)

	dataLines := lines[sepIdx+1:]
	rows := make([][]string, 0, len(dataLines))
	var adjustments []RowAdjustment

	for i, line := range dataLines {
		cells := splitRow(line)
		if len(cells) != want {
			adjustments = append(adjustments, RowAdjustment{Row: i, Got: len(cells), Want: want})
			config.DebugLog("[Table] Row %d has %d fields, normalizing to %d", i, len(cells), want)
		}
		rows = append(rows, normalize(cells, want))
	}

	return &Result{
		Table:         &Table{Headers: headers, Rows: rows},
		SourceHeaders: sourceHeaders,
		Adjustments:   adjustments,
	}, nil
}

// tableLines returns the lines containing a pipe, trimmed, in input order
func tableLines(rawText string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(rawText), "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func isSeparator(line string, rule SeparatorRule) bool {
	if rule == SeparatorLoose {
		return strings.Contains(line, "---")
	}
	hasDash := false
	for _, r := range line {
		switch r {
		case '-':
			hasDash = true
		case '|', ':', ' ', '\t':
		default:
			return false
		}
	}
	return hasDash
}

// splitRow splits a trimmed table line on '|', dropping the empty outer
// fields a leading or trailing pipe produces, and trims every cell.
func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func normalize(cells []string, want int) []string {
	if len(cells) >= want {
		return cells[:want:want]
	}
	out := make([]string, want)
	copy(out, cells)
	return out
}
