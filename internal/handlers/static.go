package handlers

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// StaticHandler serves the built web client. Paths that do not name a file
// fall back to index.html so client-side routes resolve.
type StaticHandler struct {
	dir string
}

func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

func (h *StaticHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	rel := path.Clean("/" + c.Request.URL.Path)
	if file, ok := h.lookup(rel); ok {
		h.serveFile(c, file)
		return
	}
	if index, ok := h.lookup("/" + indexFile); ok {
		h.serveFile(c, index)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (h *StaticHandler) lookup(rel string) (string, bool) {
	if rel == "/" {
		return "", false
	}
	full := filepath.Join(h.dir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}

func (h *StaticHandler) serveFile(c *gin.Context, file string) {
	if ct := contentType(file); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.File(file)
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	mt, err := mimetype.DetectFile(file)
	if err != nil {
		return ""
	}
	return mt.String()
}
