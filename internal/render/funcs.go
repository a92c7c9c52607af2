package render

import (
	"text/template"
)

// FuncMap holds the helpers available to rider list templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"catstr":       CatStr,
		"flag2unicode": FlagUnicode,
		"races":        Races,
		"ttts":         TTTs,
		"sdur":         SDur,
		"row":          NewRow,
		"csv_dict":     CSVDict,
		"table":        Table,
		"value":        Value,
	}
}
