package render

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// Table renders rows under a header as a plain text table.
func Table(header []string, rows [][]any) string {
	t := NewTable()
	headerRow := table.Row{}
	for _, h := range header {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)
	for _, r := range rows {
		t.AppendRow(table.Row(r))
	}
	return t.Render()
}

// CodeBlock wraps text in a chat code block so tables keep their alignment.
func CodeBlock(text string) string {
	return "```\n" + text + "\n```"
}
