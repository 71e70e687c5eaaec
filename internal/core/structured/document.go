package structured

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/yndnr/statehttpd/internal/core/domain"
)

// FormJSONKey is the form field that carries an embedded JSON document.
const FormJSONKey = "json"

// Document is an immutable parsed structured value.
type Document struct {
	res gjson.Result
}

// Parse parses a JSON document.
func Parse(data []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Empty(), nil
	}
	if !gjson.Valid(trimmed) {
		return nil, domain.ErrInvalidDocument.WithDetails("body is not valid json")
	}
	return &Document{res: gjson.Parse(trimmed)}, nil
}

// Empty returns an empty object document.
func Empty() *Document {
	return &Document{res: gjson.Parse("{}")}
}

// ParseForm converts an application/x-www-form-urlencoded body into a
// document. A "json" field, when present, is parsed as the whole document.
func ParseForm(data []byte) (*Document, error) {
	values, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, domain.ErrInvalidDocument.WithCause(err)
	}
	return FromValues(values)
}

// FromValues builds a document from decoded form values. Repeated keys
// become arrays.
func FromValues(values url.Values) (*Document, error) {
	if js, ok := values[FormJSONKey]; ok && len(js) > 0 {
		return Parse([]byte(js[0]))
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := "{}"
	var err error
	for _, k := range keys {
		vs := values[k]
		path := gjson.Escape(k)
		if len(vs) == 1 {
			raw, err = sjson.Set(raw, path, vs[0])
		} else {
			raw, err = sjson.Set(raw, path, vs)
		}
		if err != nil {
			return nil, domain.ErrInvalidDocument.WithCause(err)
		}
	}
	return &Document{res: gjson.Parse(raw)}, nil
}

// Exists reports whether the document holds a value.
func (d *Document) Exists() bool {
	return d != nil && d.res.Exists()
}

// Has reports whether the object document has the given key.
func (d *Document) Has(key string) bool {
	return d.Get(key).Exists()
}

// Get returns the child value under key. Keys are literal; dots and
// wildcards are not interpreted.
func (d *Document) Get(key string) *Document {
	if d == nil {
		return &Document{}
	}
	return &Document{res: d.res.Get(gjson.Escape(key))}
}

// IsObject reports whether the document is a JSON object.
func (d *Document) IsObject() bool { return d != nil && d.res.IsObject() }

// IsArray reports whether the document is a JSON array.
func (d *Document) IsArray() bool { return d != nil && d.res.IsArray() }

// IsString reports whether the document is a JSON string.
func (d *Document) IsString() bool { return d != nil && d.res.Type == gjson.String }

// String returns the value as text.
func (d *Document) String() string {
	if d == nil {
		return ""
	}
	return d.res.String()
}

// Int returns the value as an integer.
func (d *Document) Int() int64 { return d.res.Int() }

// Float returns the value as a float.
func (d *Document) Float() float64 { return d.res.Float() }

// Bool returns the value as a boolean.
func (d *Document) Bool() bool { return d.res.Bool() }

// Array returns the elements of an array document. Non-arrays yield a
// single element slice, matching gjson semantics.
func (d *Document) Array() []*Document {
	if !d.Exists() {
		return nil
	}
	items := d.res.Array()
	out := make([]*Document, len(items))
	for i, it := range items {
		out[i] = &Document{res: it}
	}
	return out
}

// Keys returns the object keys in document order.
func (d *Document) Keys() []string {
	if !d.IsObject() {
		return nil
	}
	var keys []string
	d.res.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Value returns the document as plain Go values.
func (d *Document) Value() any {
	if !d.Exists() {
		return nil
	}
	return d.res.Value()
}

// Raw returns the JSON text of the document.
func (d *Document) Raw() string {
	if d == nil {
		return ""
	}
	return d.res.Raw
}
