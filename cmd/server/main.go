package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"poseai/internal/analysis"
	"poseai/internal/archive"
	"poseai/internal/auth"
	"poseai/internal/config"
	"poseai/internal/contact"
	"poseai/internal/database"
	"poseai/internal/estimator"
	"poseai/internal/handlers"
	"poseai/internal/live"
	"poseai/internal/pose"
)

func main() {
	config.InitLogger()
	cfg := config.Load()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		userStore    auth.UserStore
		contactStore contact.Store
	)
	if cfg.Database.Enabled() {
		db, err := database.Connect(cfg.Database, cfg.Server.Mode)
		if err != nil {
			return err
		}
		defer database.Close(db)
		if err := database.Migrate(db, &auth.User{}, &contact.Message{}); err != nil {
			return err
		}
		userStore = auth.NewGormStore(db)
		contactStore = contact.NewGormStore(db)
	} else {
		slog.Warn("DB_HOST not set, using in-memory user store")
		userStore = auth.NewMemoryStore()
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	authSvc := auth.NewService(userStore, tokens)
	if cfg.JWT.DemoEmail != "" && cfg.JWT.DemoPassword != "" {
		if err := authSvc.SeedUser(ctx, "Demo User", cfg.JWT.DemoEmail, cfg.JWT.DemoPassword); err != nil {
			return err
		}
		slog.Info("Demo account ready", "email", cfg.JWT.DemoEmail)
	}

	backend, err := estimator.New(ctx, cfg.Estimator)
	if err != nil {
		return err
	}
	est := estimator.NewExclusive(backend)
	defer est.Close()
	slog.Info("Pose estimator ready", "provider", cfg.Estimator.Provider)

	opts := pose.DefaultScoreOptions()
	if cfg.Estimator.ScoreTolerance > 0 {
		opts.Tolerance = cfg.Estimator.ScoreTolerance
	}

	var sink live.ResultSink
	if cfg.MQTT.Broker != "" {
		pub, err := live.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		sink = pub
	}

	store := archive.NewStore(cfg.Server.OutputDir)
	manager := live.NewManager(est, opts, sink, cfg.Live.SessionTTL)

	router := handlers.NewRouter(handlers.Deps{
		Server:    cfg.Server,
		Estimator: cfg.Estimator,
		Auth:      authSvc,
		Contact:   contact.NewService(contact.NewMailer(cfg.Email), contactStore),
		Analysis:  analysis.NewService(est, store, opts, cfg.Estimator.Provider),
		Live:      manager,
		Archive:   store,
		Busy:      est.Busy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return manager.RunSweeper(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
