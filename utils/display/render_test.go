package display

import (
	"strings"
	"testing"

	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/stretchr/testify/assert"
)

func TestHeaderTitle(t *testing.T) {
	tests := map[string]string{
		"station number":          "Station Number",
		"RPN":                     "RPN",
		"Potential Failure Modes": "Potential Failure Modes",
		"":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HeaderTitle(in), "input %q", in)
	}
}

func TestRender(t *testing.T) {
	tbl := &table.Table{
		Headers: []string{"station number", "process name"},
		Rows:    [][]string{{"10", "Press fit"}, {"20", "Inspect"}},
	}

	out := Render(tbl, 0)
	assert.Contains(t, out, "Station Number")
	assert.Contains(t, out, "Process Name")
	assert.Contains(t, out, "Press fit")
	assert.Contains(t, out, "Inspect")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 4)
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(nil, 80))
	assert.Equal(t, "", Render(&table.Table{}, 80))
}

func TestSummary(t *testing.T) {
	tbl := &table.Table{Headers: []string{"a", "b", "c"}, Rows: [][]string{{"1", "2", "3"}}}
	assert.Equal(t, "1 rows x 3 columns", Summary(tbl))
}
