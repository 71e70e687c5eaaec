package httpserver

import (
	"strings"
	"sync"
)

type aliasEntry struct {
	alias string
	dest  string
}

type staticEntry struct {
	prefix string
	dir    string
}

// registry holds the endpoint sets and the pre-dispatch tables. All
// lookups keep registration order; the first match wins.
type registry struct {
	mu      sync.RWMutex
	auth    []Endpoint
	unauth  []Endpoint
	aliases []aliasEntry
	statics []staticEntry
}

func (r *registry) add(list *[]Endpoint, ep Endpoint) {
	r.mu.Lock()
	*list = append(*list, ep)
	r.mu.Unlock()
}

func (r *registry) remove(list *[]Endpoint, ep Endpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range *list {
		if e == ep {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// match scans one set. The returned endpoint is used after the read lock
// is released.
func (r *registry) match(auth bool, path, method string) Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.unauth
	if auth {
		list = r.auth
	}
	for _, ep := range list {
		if ep.VerifyPath(path, method) {
			return ep
		}
	}
	return nil
}

// rewrite applies the first matching alias once. The result is never
// looked up again.
func (r *registry) rewrite(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.aliases {
		if rest, ok := matchPrefix(path, a.alias); ok {
			if rest == "" {
				return a.dest
			}
			return strings.TrimSuffix(a.dest, "/") + rest
		}
	}
	return path
}

func (r *registry) static(path string) (dir, rest string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.statics {
		if rest, ok := matchPrefix(path, s.prefix); ok {
			return s.dir, rest, true
		}
	}
	return "", "", false
}

// matchPrefix matches path against prefix on a segment boundary and
// returns the remainder, which starts with "/" unless empty.
func matchPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	if strings.HasSuffix(prefix, "/") {
		if strings.HasPrefix(path, prefix) {
			return path[len(prefix)-1:], true
		}
		if path == strings.TrimSuffix(prefix, "/") {
			return "", true
		}
		return "", false
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):], true
	}
	return "", false
}

// RegisterHandler adds ep to the authenticated set.
func (s *Server) RegisterHandler(ep Endpoint) { s.reg.add(&s.reg.auth, ep) }

// RemoveHandler removes the first registration of ep from the
// authenticated set.
func (s *Server) RemoveHandler(ep Endpoint) bool { return s.reg.remove(&s.reg.auth, ep) }

// RegisterUnauthHandler adds ep to the unauthenticated set. Such
// endpoints expose state without login.
func (s *Server) RegisterUnauthHandler(ep Endpoint) { s.reg.add(&s.reg.unauth, ep) }

// RemoveUnauthHandler removes the first registration of ep from the
// unauthenticated set.
func (s *Server) RemoveUnauthHandler(ep Endpoint) bool { return s.reg.remove(&s.reg.unauth, ep) }

// RegisterStaticDir serves files under dir for paths below prefix.
func (s *Server) RegisterStaticDir(prefix, dir string) {
	s.reg.mu.Lock()
	s.reg.statics = append(s.reg.statics, staticEntry{prefix: prefix, dir: dir})
	s.reg.mu.Unlock()
}

// RegisterAlias rewrites alias (and paths below it) onto dest.
func (s *Server) RegisterAlias(alias, dest string) {
	s.reg.mu.Lock()
	s.reg.aliases = append(s.reg.aliases, aliasEntry{alias: alias, dest: dest})
	s.reg.mu.Unlock()
}

// RemoveAlias removes the first alias entry for alias.
func (s *Server) RemoveAlias(alias string) bool {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	for i, a := range s.reg.aliases {
		if a.alias == alias {
			s.reg.aliases = append(s.reg.aliases[:i:i], s.reg.aliases[i+1:]...)
			return true
		}
	}
	return false
}

// RegisterMimeType maps a file suffix to a content type.
func (s *Server) RegisterMimeType(suffix, mimeType string) { s.mime.Register(suffix, mimeType) }

// MimeType returns the content type for the suffix of path.
func (s *Server) MimeType(path string) string { return s.mime.ForPath(path) }
