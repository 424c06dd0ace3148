package static

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".txt":  "text/plain; charset=utf-8",
}

// Handler serves the SPA from dir: known asset extensions are served directly,
// everything else falls back to index.html so client-side routes work.
func Handler(dir string) http.Handler {
	root, err := filepath.Abs(dir)
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Path
		if target == "/" {
			target = "/index.html"
		}
		abs := filepath.Join(root, filepath.Clean(target))
		if !strings.HasPrefix(abs, root) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			serveFile(w, abs)
			return
		}
		serveFile(w, filepath.Join(root, "index.html"))
	})
}

func serveFile(w http.ResponseWriter, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	contentType := mimeTypes[strings.ToLower(filepath.Ext(path))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
