package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed web/index.html web/static
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/static/") {
		// Prevent directory traversal attacks
		if strings.Contains(r.URL.Path, "..") {
			http.Error(w, "Invalid file path", http.StatusBadRequest)
			return
		}
		static, err := fs.Sub(webFS, "web")
		if err != nil {
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		http.FileServer(http.FS(static)).ServeHTTP(w, r)
		return
	}

	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, h.config); err != nil {
		slog.Error("Unable to render index", "err", err)
	}
}
