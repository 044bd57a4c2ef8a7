package spreadsheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() *table.Table {
	return &table.Table{
		Headers: []string{"station number", "process name", "RPN"},
		Rows: [][]string{
			{"10", "Press fit", "120"},
			{"20", "Inspect, visual", ""},
		},
	}
}

// writeWorkbook builds a workbook shaped like the reference PFMEA file:
// a title block, a header on row headerRow and data below it.
func writeWorkbook(t *testing.T, headerRow int, data [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	require.NoError(t, f.SetCellValue(sheet, "A1", "PFMEA reference"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Part: bracket"))

	header := []interface{}{"station number", "process name", "RPN"}
	cell, err := excelize.CoordinatesToCellName(1, headerRow)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, cell, &header))

	for i, row := range data {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	path := filepath.Join(t.TempDir(), "PFMEA.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadExamplesDefaultWindow(t *testing.T) {
	path := writeWorkbook(t, 9, [][]string{
		{"10", " Press fit ", "120"},
		{},
		{"20", "Inspect"},
		{"30", "Pack", "40"},
	})

	tbl, err := ReadExamples(path, DefaultWindow)
	require.NoError(t, err)

	assert.Equal(t, []string{"station number", "process name", "RPN"}, tbl.Headers)
	assert.Equal(t, [][]string{
		{"10", "Press fit", "120"},
		{"20", "Inspect", ""},
		{"30", "Pack", "40"},
	}, tbl.Rows)
}

func TestReadExamplesMaxRows(t *testing.T) {
	var data [][]string
	for i := 0; i < 40; i++ {
		data = append(data, []string{fmt.Sprint(i), "step", "1"})
	}
	path := writeWorkbook(t, 9, data)

	tbl, err := ReadExamples(path, DefaultWindow)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 27)
	assert.Equal(t, "26", tbl.Rows[26][0])

	all, err := ReadExamples(path, Window{SkipRows: 8})
	require.NoError(t, err)
	assert.Len(t, all.Rows, 40)
}

func TestReadExamplesErrors(t *testing.T) {
	_, err := ReadExamples(filepath.Join(t.TempDir(), "missing.xlsx"), DefaultWindow)
	assert.Error(t, err)

	path := writeWorkbook(t, 3, nil)
	_, err = ReadExamples(path, Window{SkipRows: 20})
	assert.Error(t, err)

	_, err = ReadExamples(path, Window{Sheet: "Nope", SkipRows: 2})
	assert.Error(t, err)
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(sampleTable(), &buf, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"station number", "process name", "RPN"}, rows[0])
	assert.Equal(t, []string{"10", "Press fit", "120"}, rows[1])
	// excelize drops trailing empty cells on read
	assert.Equal(t, []string{"20", "Inspect, visual"}, rows[2])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(sampleTable(), &buf))
	assert.Equal(t, "station number,process name,RPN\n10,Press fit,120\n20,\"Inspect, visual\",\n", buf.String())
}

func TestWriteFormats(t *testing.T) {
	var md bytes.Buffer
	require.NoError(t, Write(FormatMarkdown, sampleTable(), &md))
	assert.Equal(t, sampleTable().Markdown(), md.String())

	var js bytes.Buffer
	require.NoError(t, Write(FormatJSON, sampleTable(), &js))
	var decoded table.Table
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *sampleTable(), decoded)

	assert.Error(t, Write(Format("pdf"), sampleTable(), &bytes.Buffer{}))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"xlsx", FormatXLSX, false},
		{"Excel", FormatXLSX, false},
		{"csv", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatXLSX, FormatFromPath("PFMEA_Output.xlsx"))
	assert.Equal(t, FormatCSV, FormatFromPath("out/pfmea.CSV"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("table.md"))
	assert.Equal(t, FormatJSON, FormatFromPath("table.json"))
	assert.Equal(t, FormatXLSX, FormatFromPath("noext"))
	assert.Equal(t, "md", FormatMarkdown.Extension())
	assert.Equal(t, "xlsx", FormatXLSX.Extension())
}
