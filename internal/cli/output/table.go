package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
)

// TableFormatter renders decoded JSON values. Objects become KEY/VALUE
// rows with nested keys joined by '/', sequences of objects become one
// row per element with the union of their keys as columns. Anything else
// falls back to JSON.
type TableFormatter struct {
	NoHeaders bool
}

// Format formats data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case map[string]any:
		return f.object(w, v)
	case []any:
		if rows, ok := objects(v); ok {
			return f.rows(w, rows)
		}
	}
	return (&JSONFormatter{}).Format(w, data)
}

func (f *TableFormatter) object(w io.Writer, obj map[string]any) error {
	flat := make(map[string]any)
	flatten("", obj, flat)
	keys := sortedKeys(flat)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		fmt.Fprintln(tw, "KEY\tVALUE")
	}
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, cell(flat[k]))
	}
	return tw.Flush()
}

func (f *TableFormatter) rows(w io.Writer, rows []map[string]any) error {
	flat := make([]map[string]any, len(rows))
	seen := make(map[string]any)
	for i, r := range rows {
		flat[i] = make(map[string]any)
		flatten("", r, flat[i])
		for k := range flat[i] {
			seen[k] = nil
		}
	}
	cols := sortedKeys(seen)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		headers := make([]string, len(cols))
		for i, c := range cols {
			headers[i] = strings.ToUpper(c)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}
	for _, r := range flat {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func objects(items []any) ([]map[string]any, bool) {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func flatten(prefix string, obj map[string]any, out map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "/" + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := gojson.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
