package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/xuri/excelize/v2"
)

// Window selects the block of a worksheet holding example rows
type Window struct {
	Sheet    string // defaults to the first sheet
	SkipRows int    // rows above the header row
	MaxRows  int    // data rows to read after the header; <= 0 reads all
}

// DefaultWindow is the layout of the reference PFMEA workbook: the header
// is on row 9 and the examples fill the 27 rows below it.
var DefaultWindow = Window{SkipRows: 8, MaxRows: 27}

// ReadExamples loads example rows from an .xlsx workbook. Fully blank rows
// are skipped and ragged rows are padded to the header width.
func ReadExamples(path string, w Window) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open example workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) <= w.SkipRows {
		return nil, fmt.Errorf("sheet %q of %s has no header at row %d", sheet, path, w.SkipRows+1)
	}

	headers := trimCells(rows[w.SkipRows])
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("sheet %q of %s has an empty header row %d", sheet, path, w.SkipRows+1)
	}

	data := rows[w.SkipRows+1:]
	if w.MaxRows > 0 && len(data) > w.MaxRows {
		data = data[:w.MaxRows]
	}

	t := &table.Table{Headers: headers}
	for _, row := range data {
		cells := trimCells(row)
		if isBlank(cells) {
			continue
		}
		t.Rows = append(t.Rows, fit(cells, len(headers)))
	}

	config.DebugLog("[Spreadsheet] Loaded %d example rows with %d columns from %s", len(t.Rows), len(headers), path)
	return t, nil
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func fit(cells []string, n int) []string {
	if len(cells) >= n {
		return cells[:n:n]
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}
