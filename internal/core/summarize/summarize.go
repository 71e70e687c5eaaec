// Package summarize implements field-selection projection of tracked values.
//
// A selection document carries a "fields" array whose entries are either a
// path string ("device/name") or a [path, rename] pair. Projection of a
// sequence is applied element-wise. Output objects are keyed by the path
// string; the returned RenameMap tells the serializer which name to emit.
package summarize

import (
	"bytes"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/structured"
)

// FieldsKey is the selection document key holding field specs.
const FieldsKey = "fields"

// RenameMap maps an emitted path key to the name the serializer writes.
type RenameMap map[string]string

// Field is one parsed selection entry.
type Field struct {
	Path     string
	Segments []string
	Name     string
}

// ParseFields extracts field specs from a selection document. A document
// without a "fields" key selects nothing and returns nil.
func ParseFields(spec *structured.Document) ([]Field, error) {
	if !spec.Exists() || !spec.Has(FieldsKey) {
		return nil, nil
	}
	list := spec.Get(FieldsKey)
	if !list.IsArray() {
		return nil, domain.ErrInvalidFieldSpec.WithDetails("fields must be an array")
	}

	items := list.Array()
	fields := make([]Field, 0, len(items))
	for i, item := range items {
		var path, rename string
		switch {
		case item.IsString():
			path = item.String()
		case item.IsArray():
			pair := item.Array()
			if len(pair) != 2 || !pair[0].IsString() || !pair[1].IsString() {
				return nil, domain.ErrInvalidFieldSpec.WithDetails(
					fmt.Sprintf("field %d: expected [path, rename]", i))
			}
			path, rename = pair[0].String(), pair[1].String()
		default:
			return nil, domain.ErrInvalidFieldSpec.WithDetails(
				fmt.Sprintf("field %d: expected string or [path, rename]", i))
		}

		segs := splitPath(path)
		if len(segs) == 0 {
			return nil, domain.ErrInvalidFieldSpec.WithDetails(
				fmt.Sprintf("field %d: empty path", i))
		}
		if rename == "" {
			rename = segs[len(segs)-1]
		}
		fields = append(fields, Field{Path: path, Segments: segs, Name: rename})
	}
	return fields, nil
}

// Summarize projects value down to the fields named in spec.
//
// The value is either a sequence or a single composite. On any missing or
// malformed path the whole call fails and no partial output is returned.
func Summarize(value any, spec *structured.Document) (any, RenameMap, error) {
	fields, err := ParseFields(spec)
	if err != nil {
		return nil, nil, err
	}
	renames := make(RenameMap, len(fields))
	if len(fields) == 0 {
		return value, renames, nil
	}
	for _, f := range fields {
		renames[f.Path] = f.Name
	}

	norm, err := Normalize(value)
	if err != nil {
		return nil, nil, err
	}

	switch v := norm.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			projected, err := project(elem, fields)
			if err != nil {
				return nil, nil, domain.ErrSummarize.WithDetails(
					fmt.Sprintf("element %d: %s", i, err.Error()))
			}
			out[i] = projected
		}
		return out, renames, nil
	default:
		projected, err := project(v, fields)
		if err != nil {
			return nil, nil, domain.ErrSummarize.WithDetails(err.Error())
		}
		return projected, renames, nil
	}
}

// Normalize converts an arbitrary encodable value into map[string]any /
// []any / scalar form by a JSON round trip. Scalars are returned as is.
// Numbers inside containers come back as gojson.Number so integers wider
// than 53 bits keep their exact value.
func Normalize(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, gojson.Number,
		float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return value, nil
	}
	data, err := gojson.Marshal(value)
	if err != nil {
		return nil, domain.ErrSummarize.WithCause(err)
	}
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, domain.ErrSummarize.WithCause(err)
	}
	return out, nil
}

func project(value any, fields []Field) (map[string]any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot select fields from %T", value)
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := lookup(obj, f.Segments)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Path, err)
		}
		out[f.Path] = v
	}
	return out, nil
}

func lookup(obj map[string]any, segs []string) (any, error) {
	var cur any = obj
	for i, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("'%s' is not an object", strings.Join(segs[:i], "/"))
		}
		next, ok := m[seg]
		if !ok {
			return nil, fmt.Errorf("'%s' not found", seg)
		}
		cur = next
	}
	return cur, nil
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// Apply rewrites the keys of a summarized value using renames, producing
// the shape emitted to clients.
func Apply(value any, renames RenameMap) any {
	if len(renames) == 0 {
		return value
	}
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Apply(elem, renames)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			if name, ok := renames[k]; ok {
				out[name] = elem
			} else {
				out[k] = elem
			}
		}
		return out
	default:
		return value
	}
}
