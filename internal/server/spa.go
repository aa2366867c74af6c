package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// spaHandler serves a built single-page app. Existing files are served as
// is; any other path gets index.html so client-side routes survive a
// reload.
type spaHandler struct {
	root  http.FileSystem
	index string
	files http.Handler
}

// newSPAHandler reports false when dir has no index.html.
func newSPAHandler(dir string) (*spaHandler, bool) {
	index := filepath.Join(dir, "index.html")
	if info, err := os.Stat(index); err != nil || info.IsDir() {
		return nil, false
	}
	root := http.Dir(dir)
	return &spaHandler{root: root, index: index, files: http.FileServer(root)}, true
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)

	// http.Dir refuses paths that escape the root.
	if f, err := h.root.Open(name); err == nil {
		info, statErr := f.Stat()
		f.Close()
		if statErr == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}

	http.ServeFile(w, r, h.index)
}
