package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"poseai/internal/estimator"
	"poseai/internal/live"
)

type LiveHandler struct {
	manager  *live.Manager
	maxBytes int64
	timeout  time.Duration
}

func NewLiveHandler(manager *live.Manager, maxBytes int64, timeout time.Duration) *LiveHandler {
	return &LiveHandler{manager: manager, maxBytes: maxBytes, timeout: timeout}
}

// POST /api/live/sessions
func (h *LiveHandler) Create(c *gin.Context) {
	s := h.manager.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID, "created_at": s.CreatedAt})
}

// POST /api/live/sessions/:id/frames
//
// The frame is either the raw request body or a multipart "file" field.
func (h *LiveHandler) Frame(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.manager.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	data, err := h.readFrame(c)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A frame image is required"})
		return
	}
	frame, err := estimator.DecodeFrame(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported or corrupt image"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	u, err := h.manager.Submit(ctx, id, frame)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *LiveHandler) readFrame(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err := readUpload(c, h.maxBytes)
		return data, err
	}
	body := io.Reader(c.Request.Body)
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	return io.ReadAll(body)
}

// GET /api/live/sessions/:id
func (h *LiveHandler) Latest(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	u, ok := s.Latest()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /api/live/sessions/:id
func (h *LiveHandler) Delete(c *gin.Context) {
	if !h.manager.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}
