package handlers

import (
	"io/fs"
	"net/http"
	"os"

	"modelhub-backend/internal/web"
)

// StaticHandler serves the single-page front end, from dir when set and from
// the embedded bundle otherwise.
type StaticHandler struct {
	files fs.FS
}

func NewStaticHandler(dir string) *StaticHandler {
	if dir != "" {
		return &StaticHandler{files: os.DirFS(dir)}
	}
	return &StaticHandler{files: web.FS()}
}

func (h *StaticHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, h.files, "index.html")
}

func (h *StaticHandler) Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServerFS(h.files))
}
