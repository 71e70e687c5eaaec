package httpserver

import (
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/summarize"
)

// DefaultFormat is used when a request path has no suffix.
const DefaultFormat = "json"

// Serializer writes a tracked value in one output format.
type Serializer func(w io.Writer, value any) error

var serializers = map[string]Serializer{
	"json":       writeJSON,
	"prettyjson": writePrettyJSON,
	"ekjson":     writeEKJSON,
	"itjson":     writeITJSON,
	"yaml":       writeYAML,
}

// HasSerializer reports whether suffix names an output format. The empty
// suffix selects DefaultFormat.
func HasSerializer(suffix string) bool {
	if suffix == "" {
		return true
	}
	_, ok := serializers[suffix]
	return ok
}

// Serialize writes value in the format named by suffix, emitting renamed
// keys from a summarization.
func Serialize(w io.Writer, suffix string, value any, renames summarize.RenameMap) error {
	if suffix == "" {
		suffix = DefaultFormat
	}
	ser, ok := serializers[suffix]
	if !ok {
		return domain.ErrNotFound.WithDetails("unknown format: " + suffix)
	}
	if len(renames) > 0 {
		norm, err := summarize.Normalize(value)
		if err != nil {
			return err
		}
		value = summarize.Apply(norm, renames)
	}
	return ser(w, value)
}

func writeJSON(w io.Writer, value any) error {
	return gojson.NewEncoder(w).Encode(value)
}

func writePrettyJSON(w io.Writer, value any) error {
	b, err := gojson.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(b))
	return err
}

// writeITJSON emits one record per line for sequences.
func writeITJSON(w io.Writer, value any) error {
	norm, err := summarize.Normalize(value)
	if err != nil {
		return err
	}
	items, ok := norm.([]any)
	if !ok {
		return writeJSON(w, norm)
	}
	enc := gojson.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// writeEKJSON emits itjson with keys made safe for search indexers:
// '.' and '/' become '_'.
func writeEKJSON(w io.Writer, value any) error {
	norm, err := summarize.Normalize(value)
	if err != nil {
		return err
	}
	return writeITJSON(w, ekKeys(norm))
}

var ekReplacer = strings.NewReplacer(".", "_", "/", "_")

func ekKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[ekReplacer.Replace(k)] = ekKeys(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ekKeys(e)
		}
		return out
	default:
		return v
	}
}

func writeYAML(w io.Writer, value any) error {
	norm, err := summarize.Normalize(value)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlNumbers(norm)); err != nil {
		return err
	}
	return enc.Close()
}

// yamlNumbers replaces gojson.Number leaves with int64, uint64 or float64,
// tried in that order, so yaml emits plain numbers instead of strings.
func yamlNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlNumbers(e)
		}
		return out
	case gojson.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	default:
		return v
	}
}
