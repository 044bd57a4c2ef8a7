// Package pfmea builds Process Failure Mode and Effects Analysis tables
// with a chat model.
package pfmea

import "strings"

var columns = []string{
	"station number",
	"process name",
	"process elements",
	"Requirements",
	"Potential Failure Modes",
	"Potential effect of line",
	"Potential effect of system",
	"Severity",
	"Class",
	"Potential casual mechanisms",
	"Current process management Prevention",
	"Frequency of Occurrence",
	"Current process control detection",
	"Detection",
	"RPN",
	"Recommended activities",
}

// Columns returns the PFMEA column schema in output order
func Columns() []string {
	return append([]string(nil), columns...)
}

// ColumnList joins columns the way the prompt presents them
func ColumnList(cols []string) string {
	return strings.Join(cols, " | ")
}
