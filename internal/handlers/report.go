package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poseai/internal/archive"
)

type ReportHandler struct {
	store *archive.Store
}

func NewReportHandler(store *archive.Store) *ReportHandler {
	return &ReportHandler{store: store}
}

// GET /report/:id
func (h *ReportHandler) Report(c *gin.Context) {
	h.serve(c, c.Param("id"), archive.ReportFile)
}

// GET /report/:id/:file
func (h *ReportHandler) File(c *gin.Context) {
	h.serve(c, c.Param("id"), c.Param("file"))
}

func (h *ReportHandler) serve(c *gin.Context, id, name string) {
	path, err := h.store.File(id, name)
	if err != nil {
		c.String(http.StatusNotFound, "Report not found")
		return
	}
	c.File(path)
}
