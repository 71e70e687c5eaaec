package httpserver

import (
	"html"
	"path"
	"strings"
)

// GetSuffix returns the extension of the last path segment without the
// dot, or "" if there is none.
func GetSuffix(p string) string {
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}

// StripSuffix removes the extension of the last path segment.
func StripSuffix(p string) string {
	suffix := GetSuffix(p)
	if suffix == "" {
		return p
	}
	return p[:len(p)-len(suffix)-1]
}

// PathSegments splits a URL path into its non-empty segments.
func PathSegments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EscapeHTML escapes client-derived text before it is echoed back.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
