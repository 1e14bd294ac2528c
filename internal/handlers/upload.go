package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	dir      string
	maxBytes int64
}

func NewUploadHandler(dir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{dir: dir, maxBytes: maxBytes}
}

// POST /api/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	name := filepath.Base(file.Filename)
	if name == "." || name == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		slog.Error("Failed to create upload dir", "dir", h.dir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store file"})
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(h.dir, name)); err != nil {
		slog.Error("Failed to save upload", "name", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store file"})
		return
	}

	slog.Info("File uploaded", "name", name, "size", file.Size)
	c.JSON(http.StatusOK, gin.H{"message": "File uploaded successfully", "url": "/uploads/" + name})
}
