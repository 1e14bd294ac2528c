package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"poseai/internal/auth"
	"poseai/internal/middleware"
)

type AuthHandlers struct {
	svc *auth.Service
}

func NewAuthHandlers(svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// POST /api/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	default:
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// POST /api/auth/signup
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req auth.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.svc.Signup(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	case errors.Is(err, auth.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
	case errors.Is(err, auth.ErrEmailInUse):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already in use"})
	default:
		slog.Error("Signup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// GET /api/auth/me
func (h *AuthHandlers) Me(c *gin.Context) {
	user, exists := c.Get(middleware.UserKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.(*auth.User)})
}
