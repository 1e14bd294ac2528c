package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"poseai/internal/contact"
)

type ContactHandler struct {
	svc *contact.Service
}

func NewContactHandler(svc *contact.Service) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contact.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.svc.Submit(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Your inquiry has been sent successfully"})
	case errors.Is(err, contact.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send inquiry"})
	}
}
