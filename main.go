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

	"flowfin/config"
	"flowfin/internal/jobs"
	"flowfin/internal/realtime"
	"flowfin/internal/routes"
	"flowfin/models"

	"github.com/gin-gonic/gin"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogger(settings.LogLevel)

	if err := config.ConnectDB(settings.DatabaseURL, models.All()...); err != nil {
		slog.Error("Database initialisation failed", "error", err)
		os.Exit(1)
	}
	config.ConnectRedis(settings.RedisAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.GeminiAPIKey != "" {
		if err := config.InitGoogleServices(ctx, settings.GeminiAPIKey, settings.GeminiModel); err != nil {
			slog.Warn("Gemini unavailable, document recognition disabled", "error", err)
		}
	}

	go realtime.GlobalHub.Run(ctx)

	var scheduler *jobs.Scheduler
	if settings.CronEnabled {
		scheduler = jobs.NewScheduler(config.DB)
		if err := scheduler.Start(); err != nil {
			slog.Error("Job scheduler failed to start", "error", err)
			os.Exit(1)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              settings.HTTPAddr,
		Handler:           routes.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", settings.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	config.CloseGoogleServices()
	if config.RDB != nil {
		_ = config.RDB.Close()
	}
	if sqlDB, err := config.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
