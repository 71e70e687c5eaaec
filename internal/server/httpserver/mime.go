package httpserver

import (
	"strings"
	"sync"
)

var defaultMimeTypes = map[string]string{
	"html":       "text/html; charset=utf-8",
	"htm":        "text/html; charset=utf-8",
	"css":        "text/css; charset=utf-8",
	"js":         "application/javascript",
	"txt":        "text/plain; charset=utf-8",
	"json":       "application/json",
	"prettyjson": "application/json",
	"ekjson":     "application/json",
	"itjson":     "application/json",
	"yaml":       "application/yaml",
	"svg":        "image/svg+xml",
	"png":        "image/png",
	"jpg":        "image/jpeg",
	"jpeg":       "image/jpeg",
	"gif":        "image/gif",
	"ico":        "image/x-icon",
	"woff":       "font/woff",
	"woff2":      "font/woff2",
	"map":        "application/json",
}

// MimeTable maps file suffixes to content types.
type MimeTable struct {
	mu    sync.RWMutex
	types map[string]string
	def   string
}

// NewMimeTable returns a table seeded with the built-in types.
func NewMimeTable(defaultType string) *MimeTable {
	t := &MimeTable{types: make(map[string]string, len(defaultMimeTypes)), def: defaultType}
	for k, v := range defaultMimeTypes {
		t.types[k] = v
	}
	return t
}

// Register adds or replaces a suffix mapping. A leading dot is ignored.
func (t *MimeTable) Register(suffix, mimeType string) {
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
	t.mu.Lock()
	t.types[suffix] = mimeType
	t.mu.Unlock()
}

// Lookup returns the type for suffix, or the default.
func (t *MimeTable) Lookup(suffix string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if mt, ok := t.types[strings.ToLower(suffix)]; ok {
		return mt
	}
	return t.def
}

// ForPath returns the type for the suffix of p.
func (t *MimeTable) ForPath(p string) string {
	return t.Lookup(GetSuffix(p))
}
