package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mediaforge/server/internal/domain/generation"
)

// FilesHandler serves materialized artifacts through by-path references.
// Raw filesystem paths never appear in generation results; this handler
// is the only component that resolves them.
type FilesHandler struct {
	// dirs maps each modality to its artifact store root. Requests are
	// confined to these roots.
	dirs map[generation.Modality]string
}

// NewFilesHandler creates a files handler over the per-modality stores.
func NewFilesHandler(dirs map[generation.Modality]string) *FilesHandler {
	resolved := make(map[generation.Modality]string, len(dirs))
	for m, dir := range dirs {
		if abs, err := filepath.Abs(dir); err == nil {
			resolved[m] = abs
		} else {
			resolved[m] = dir
		}
	}
	return &FilesHandler{dirs: resolved}
}

// RegisterRoutes registers the by-path file routes at the engine root so
// access URLs resolve without an API prefix.
func (h *FilesHandler) RegisterRoutes(r *gin.Engine) {
	for modality := range h.dirs {
		r.GET("/"+string(modality)+"/by-path", h.serve(modality))
	}
}

func (h *FilesHandler) serve(modality generation.Modality) gin.HandlerFunc {
	root := h.dirs[modality]
	return func(c *gin.Context) {
		raw := c.Query("path")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "path query parameter is required"})
			return
		}

		path, err := filepath.Abs(filepath.Clean(raw))
		if err != nil || !within(root, path) {
			c.JSON(http.StatusForbidden, gin.H{"error": "path is outside the artifact store"})
			return
		}
		c.File(path)
	}
}

// within reports whether path is inside root after normalization.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
