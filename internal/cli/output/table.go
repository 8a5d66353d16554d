package output

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows in the renderer's effective mode: a box table for
// text, a pipe table for markdown, an array of objects for JSON and CSV
// with a header row.
func (r *Renderer) Table(cols []string, rows [][]any) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		return r.JSON(rowsAsObjects(cols, rows))
	}

	if len(rows) == 0 && mode != ModeCSV {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = FormatValue(v)
		}
		t.AppendRow(tr)
	}

	switch mode {
	case ModeCSV:
		t.RenderCSV()
		return nil
	case ModeMarkdown:
		t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleLight)
		t.Render()
	}
	r.Printf("(%d rows)\n", len(rows))
	return nil
}

func rowsAsObjects(cols []string, rows [][]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			if i < len(row) {
				obj[c] = jsonValue(row[i])
			}
		}
		out = append(out, obj)
	}
	return out
}

// jsonValue keeps JSON-native values and stringifies the rest.
func jsonValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float32, float64,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x
	case time.Time:
		return x
	case json.Marshaler:
		return x
	default:
		return FormatValue(v)
	}
}

// FormatValue renders a scanned database value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case fmt.Stringer:
		return x.String()
	}

	// Driver types such as decimals implement Stringer on the pointer.
	rv := reflect.ValueOf(v)
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	if s, ok := ptr.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
