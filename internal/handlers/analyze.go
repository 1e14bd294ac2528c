package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"poseai/internal/analysis"
	"poseai/internal/archive"
	"poseai/internal/estimator"
	"poseai/internal/live"
)

type AnalyzeHandler struct {
	svc      *analysis.Service
	maxBytes int64
	timeout  time.Duration
}

func NewAnalyzeHandler(svc *analysis.Service, maxBytes int64, timeout time.Duration) *AnalyzeHandler {
	return &AnalyzeHandler{svc: svc, maxBytes: maxBytes, timeout: timeout}
}

// POST /api/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	data, err := readUpload(c, h.maxBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report, err := h.svc.Analyze(ctx, data)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/analyze/:id/scene
func (h *AnalyzeHandler) Scene(c *gin.Context) {
	scene, err := h.svc.Scene(c.Param("id"))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
			return
		}
		slog.Error("Failed to build scene", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analysis"})
		return
	}
	c.JSON(http.StatusOK, scene)
}

// readUpload returns the contents of the multipart "file" field. The client's
// file name is ignored.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// writeAnalysisError maps pipeline errors onto HTTP responses. No partial
// result is ever written.
func writeAnalysisError(c *gin.Context, err error) {
	var visErr *analysis.VisibilityError
	var upErr *analysis.UpstreamError

	switch {
	case errors.Is(err, analysis.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported or corrupt image"})
	case errors.Is(err, analysis.ErrNoBodyDetected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No body detected in the image"})
	case errors.As(err, &visErr):
		missing := make([]string, len(visErr.Missing))
		for i, p := range visErr.Missing {
			missing[i] = p.String()
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Required body parts are not clearly visible",
			"missing": missing,
		})
	case errors.Is(err, estimator.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Analysis in progress, frame skipped"})
	case errors.Is(err, live.ErrStale):
		c.JSON(http.StatusConflict, gin.H{"error": "A newer frame has already been scored"})
	case errors.Is(err, live.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.As(err, &upErr):
		slog.Error("Pose estimation failed", "op", upErr.Op, "error", upErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed, please try again"})
	default:
		slog.Error("Analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
