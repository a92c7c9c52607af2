package render

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Row is an ordered set of named csv columns.
type Row struct {
	Keys   []string
	Values []string
}

// NewRow builds a row out of alternating names and values.
func NewRow(pairs ...any) (Row, error) {
	if len(pairs)%2 != 0 {
		return Row{}, fmt.Errorf("row: odd amount of arguments (%d)", len(pairs))
	}
	var row Row
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return Row{}, fmt.Errorf("row: key %v is not a string", pairs[i])
		}
		row.Keys = append(row.Keys, key)
		row.Values = append(row.Values, Value(pairs[i+1]))
	}
	return row, nil
}

// Value formats v for output, nil pointers become "".
func Value(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case *int:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case *float64:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	}
	return fmt.Sprint(v)
}

// CSVDict writes the row as one csv line, preceded by the header line when writeHeader is set.
func CSVDict(row Row, writeHeader ...bool) (string, error) {
	var out strings.Builder
	w := csv.NewWriter(&out)
	if len(writeHeader) > 0 && writeHeader[0] {
		if err := w.Write(row.Keys); err != nil {
			return "", err
		}
	}
	if err := w.Write(row.Values); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return out.String(), nil
}
