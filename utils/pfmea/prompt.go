package pfmea

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/pfmea/utils/table"
)

// BuildPrompt assembles the generation prompt. The example section is only
// included when examples has rows.
func BuildPrompt(req Request, cols []string, examples *table.Table, minRows int) string {
	req = req.Normalize()
	if minRows <= 0 {
		minRows = 10
	}

	var sb strings.Builder
	sb.WriteString("You are an expert in automotive manufacturing PFMEA.\n")
	sb.WriteString("Generate a detailed PFMEA table for the following process:\n\n")
	fmt.Fprintf(&sb, "Process Name: %s\n", req.ProcessName)
	fmt.Fprintf(&sb, "Equipment Involved: %s\n", req.Equipment)
	fmt.Fprintf(&sb, "Special Considerations: %s\n\n", req.Notes)
	sb.WriteString("Structure the PFMEA as a markdown table with the following columns:\n")
	sb.WriteString(ColumnList(cols))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Generate at least %d rows.\n", minRows)

	if examples.Len() > 0 {
		sb.WriteString("\nExamples:\n")
		sb.WriteString(examples.Markdown())
	}

	return sb.String()
}
