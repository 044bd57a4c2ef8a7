package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		columns  []string
		opts     Options
		expected [][]string
	}{
		{
			name:     "short row is padded",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |\n| 3 |\n",
			columns:  []string{"a", "b"},
			expected: [][]string{{"1", "2"}, {"3", ""}},
		},
		{
			name:     "long row is truncated",
			input:    "| a | b | c |\n| - | - | - |\n| 1 | 2 | 3 | 4 |\n",
			columns:  []string{"a", "b", "c"},
			expected: [][]string{{"1", "2", "3"}},
		},
		{
			name: "prose around the table is ignored",
			input: "Here is the PFMEA you asked for:\n\n" +
				"| Station | Failure |\n|:---|---:|\n| 10 | Burr |\n| 20 | Crack |\n\nLet me know if you need more rows.",
			columns:  []string{"station", "failure"},
			expected: [][]string{{"10", "Burr"}, {"20", "Crack"}},
		},
		{
			name:     "CRLF line endings",
			input:    "| a | b |\r\n| --- | --- |\r\n| x | y |\r\n",
			columns:  []string{"a", "b"},
			expected: [][]string{{"x", "y"}},
		},
		{
			name:     "rows without outer pipes",
			input:    "a | b\n--- | ---\n1 | 2\n",
			columns:  []string{"a", "b"},
			expected: [][]string{{"1", "2"}},
		},
		{
			name:     "empty cells are preserved",
			input:    "| a | b | c |\n|---|---|---|\n| 1 |  | 3 |\n",
			columns:  []string{"a", "b", "c"},
			expected: [][]string{{"1", "", "3"}},
		},
		{
			name:     "loose rule accepts separator with other characters",
			input:    "| a | b |\n|---|---| <- divider\n| 1 | 2 |\n",
			columns:  []string{"a", "b"},
			opts:     Options{Separator: SeparatorLoose},
			expected: [][]string{{"1", "2"}},
		},
		{
			name:     "separator with no data rows",
			input:    "| a | b |\n|---|---|\n",
			columns:  []string{"a", "b"},
			expected: [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(tt.input, tt.columns, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, res.Table.Headers)
			assert.Equal(t, tt.expected, res.Table.Rows)
		})
	}
}

func TestExtractRowCountAndWidth(t *testing.T) {
	columns := []string{"c1", "c2", "c3", "c4"}
	var sb strings.Builder
	sb.WriteString("| h1 | h2 | h3 | h4 |\n| --- | --- | --- | --- |\n")
	widths := []int{1, 2, 4, 6, 3, 0}
	for _, w := range widths {
		sb.WriteString("|")
		for i := 0; i < w; i++ {
			sb.WriteString(" v |")
		}
		sb.WriteString("\n")
	}

	res, err := Extract(sb.String(), columns, Options{})
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, len(widths))
	for i, row := range res.Table.Rows {
		assert.Len(t, row, len(columns), "row %d", i)
	}
}

func TestExtractPaddingPreservesOrder(t *testing.T) {
	res, err := Extract("| a | b | c | d |\n|---|---|---|---|\n| x | y |\n", []string{"a", "b", "c", "d"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y", "", ""}}, res.Table.Rows)
}

func TestExtractTruncationKeepsLeadingFields(t *testing.T) {
	res, err := Extract("| a | b |\n|---|---|\n| 1 | 2 | 3 | 4 | 5 |\n", []string{"a", "b"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, res.Table.Rows)
}

func TestExtractRecordsAdjustments(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 | 2 |\n| 3 |\n| 4 | 5 | 6 |\n"
	res, err := Extract(input, []string{"a", "b"}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Adjustments, 2)
	assert.Equal(t, RowAdjustment{Row: 1, Got: 1, Want: 2}, res.Adjustments[0])
	assert.True(t, res.Adjustments[0].Padded())
	assert.Equal(t, RowAdjustment{Row: 2, Got: 3, Want: 2}, res.Adjustments[1])
	assert.False(t, res.Adjustments[1].Padded())
}

func TestExtractIsIdempotent(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 | 2 |\n| 3 |\n"
	first, err := Extract(input, []string{"a", "b"}, Options{})
	require.NoError(t, err)
	second, err := Extract(input, []string{"a", "b"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractUsesSourceHeadersWithoutSchema(t *testing.T) {
	res, err := Extract("| Name | Score |\n|---|---|\n| ann | 3 |\n| bob |\n", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Score"}, res.Table.Headers)
	assert.Equal(t, []string{"Name", "Score"}, res.SourceHeaders)
	assert.Equal(t, [][]string{{"ann", "3"}, {"bob", ""}}, res.Table.Rows)
}

func TestExtractDoesNotAliasExpectedColumns(t *testing.T) {
	columns := []string{"a", "b"}
	res, err := Extract("| a | b |\n|---|---|\n| 1 | 2 |\n", columns, Options{})
	require.NoError(t, err)
	res.Table.Headers[0] = "changed"
	assert.Equal(t, "a", columns[0])
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		wantErr error
	}{
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrMissingTable,
		},
		{
			name:    "no pipes at all",
			input:   "I'm sorry, I cannot produce that table.",
			wantErr: ErrMissingTable,
		},
		{
			name:    "header without separator",
			input:   "| a | b |\n| 1 | 2 |\n",
			wantErr: ErrMissingSeparator,
		},
		{
			name:    "header only",
			input:   "| a | b |",
			wantErr: ErrMissingSeparator,
		},
		{
			name:    "row of empty cells is not a strict separator",
			input:   "| a | b |\n|   |   |\n| 1 | 2 |\n",
			wantErr: ErrMissingSeparator,
		},
		{
			name:    "loose rule needs three dashes",
			input:   "| a | b |\n| - | - |\n| 1 | 2 |\n",
			opts:    Options{Separator: SeparatorLoose},
			wantErr: ErrMissingSeparator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(tt.input, []string{"a", "b"}, tt.opts)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestStrictRuleRejectsHyphenatedDataRow(t *testing.T) {
	// with the loose rule a data cell containing "---" would be taken as the separator
	input := "| a | b |\n| x---y | z |\n|---|---|\n| 1 | 2 |\n"

	strict, err := Extract(input, []string{"a", "b"}, Options{Separator: SeparatorStrict})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, strict.Table.Rows)

	loose, err := Extract(input, []string{"a", "b"}, Options{Separator: SeparatorLoose})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"---", "---"}, {"1", "2"}}, loose.Table.Rows)
}

func TestParseSeparatorRule(t *testing.T) {
	tests := []struct {
		input   string
		want    SeparatorRule
		wantErr bool
	}{
		{"", SeparatorStrict, false},
		{"strict", SeparatorStrict, false},
		{"LOOSE", SeparatorLoose, false},
		{" loose ", SeparatorLoose, false},
		{"fuzzy", SeparatorStrict, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeparatorRule(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(orDefault(tt.input))), got.String())
		})
	}
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "strict"
	}
	return s
}
