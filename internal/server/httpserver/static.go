package httpserver

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

const indexFile = "index.html"

// serveStatic serves rest from dir. It reports false when no file exists
// so dispatch can fall through to the endpoint registries.
func (s *Server) serveStatic(c *Connection, dir, rest string) bool {
	clean := path.Clean("/" + rest)
	name := filepath.Join(dir, filepath.FromSlash(clean))

	f, info, err := openRegular(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("static file unavailable", "path", name, "error", err)
		}
		return false
	}
	defer f.Close()

	c.MimeURL = info.Name()
	c.Header().Set("Content-Type", s.mime.ForPath(info.Name()))
	c.Finalize(false)
	http.ServeContent(c, c.req, info.Name(), info.ModTime(), f)
	return true
}

func openRegular(name string) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return openRegular(filepath.Join(name, indexFile))
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fs.ErrNotExist
	}
	return f, info, nil
}
