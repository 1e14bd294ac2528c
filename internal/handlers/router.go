package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"poseai/internal/analysis"
	"poseai/internal/archive"
	"poseai/internal/auth"
	"poseai/internal/config"
	"poseai/internal/contact"
	"poseai/internal/live"
	"poseai/internal/middleware"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Server    config.ServerConfig
	Estimator config.EstimatorConfig
	Auth      *auth.Service
	Contact   *contact.Service
	Analysis  *analysis.Service
	Live      *live.Manager
	Archive   *archive.Store
	// Busy reports whether the estimator is running. Optional.
	Busy func() bool
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(d.Server.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		busy := false
		if d.Busy != nil {
			busy = d.Busy()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"provider":       d.Estimator.Provider,
			"estimator_busy": busy,
			"timestamp":      time.Now().UTC(),
		})
	})
	r.Static("/uploads", d.Server.UploadDir)

	api := r.Group("/api")

	authHandlers := NewAuthHandlers(d.Auth)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandlers.Login)
		authGroup.POST("/signup", authHandlers.Signup)
		authGroup.GET("/me", middleware.RequireAuth(d.Auth), authHandlers.Me)
	}

	api.POST("/contact", NewContactHandler(d.Contact).Submit)
	api.POST("/upload", NewUploadHandler(d.Server.UploadDir, d.Server.MaxUploadBytes).Upload)

	analyze := NewAnalyzeHandler(d.Analysis, d.Server.MaxUploadBytes, d.Estimator.Timeout)
	api.POST("/analyze", analyze.Analyze)
	api.GET("/analyze/:id/scene", analyze.Scene)

	liveHandler := NewLiveHandler(d.Live, d.Server.MaxUploadBytes, d.Estimator.Timeout)
	sessions := api.Group("/live/sessions")
	{
		sessions.POST("", liveHandler.Create)
		sessions.POST("/:id/frames", liveHandler.Frame)
		sessions.GET("/:id", liveHandler.Latest)
		sessions.DELETE("/:id", liveHandler.Delete)
	}

	reports := NewReportHandler(d.Archive)
	r.GET("/report/:id", reports.Report)
	r.GET("/report/:id/:file", reports.File)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
