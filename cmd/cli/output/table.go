package output

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints a pretty table to stdout. footer is optional and
// rendered as a final row when non-nil.
func RenderTable(headers []string, rows [][]interface{}, footer []interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if footer != nil {
		t.AppendFooter(table.Row(footer))
	}

	t.Render()
}
