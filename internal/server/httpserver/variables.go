package httpserver

import (
	"strconv"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/core/structured"
)

// VariableCache holds the top-level POST fields as text.
type VariableCache struct {
	vars map[string]string
}

func newVariableCache(doc *structured.Document) *VariableCache {
	vc := &VariableCache{vars: make(map[string]string)}
	for _, k := range doc.Keys() {
		v := doc.Get(k)
		if v.IsString() {
			vc.vars[k] = v.String()
		} else {
			vc.vars[k] = v.Raw()
		}
	}
	return vc
}

// Has reports whether key was supplied.
func (v *VariableCache) Has(key string) bool {
	_, ok := v.vars[key]
	return ok
}

// Get returns the raw text of key.
func (v *VariableCache) Get(key string) (string, bool) {
	s, ok := v.vars[key]
	return s, ok
}

// Len returns the number of cached fields.
func (v *VariableCache) Len() int { return len(v.vars) }

// Primitive lists the types a cached variable converts to.
type Primitive interface {
	string | bool | int | int64 | uint | uint64 | float64
}

// VariableCacheAs converts a cached POST field. It fails with
// ErrVariableMissing or ErrVariableInvalid; callers answer 400 and carry
// on.
func VariableCacheAs[T Primitive](c *Connection, key string) (T, error) {
	return CacheAs[T](c.vars, key)
}

// CacheAs converts the cached field key to T.
func CacheAs[T Primitive](vc *VariableCache, key string) (T, error) {
	var zero T
	raw, ok := vc.Get(key)
	if !ok {
		return zero, domain.ErrVariableMissing.WithDetails("variable '" + key + "' not found")
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case string:
		out = raw
	case bool:
		out, err = strconv.ParseBool(raw)
	case int:
		out, err = strconv.Atoi(raw)
	case int64:
		out, err = strconv.ParseInt(raw, 10, 64)
	case uint:
		var u uint64
		u, err = strconv.ParseUint(raw, 10, strconv.IntSize)
		out = uint(u)
	case uint64:
		out, err = strconv.ParseUint(raw, 10, 64)
	case float64:
		out, err = strconv.ParseFloat(raw, 64)
	}
	if err != nil {
		return zero, domain.ErrVariableInvalid.WithDetails("variable '" + key + "'").WithCause(err)
	}
	return out.(T), nil
}
