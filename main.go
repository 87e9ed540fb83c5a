package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/graphcare/backend/internal/config"
	"github.com/graphcare/backend/internal/pipeline"
	"github.com/graphcare/backend/internal/repository"
	"github.com/graphcare/backend/internal/runner"
	"github.com/graphcare/backend/internal/service"
	"github.com/graphcare/backend/internal/session"
	"github.com/graphcare/backend/internal/storage"
	v1 "github.com/graphcare/backend/internal/transport/http/v1"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting decision-support backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Audit database: %s", cfg.DatabaseURL)
	log.Printf("Model baselines dir: %s", cfg.BaselinesDir)

	// Initialize audit log (best effort - requests work without it)
	audit, err := repository.NewAuditLog(cfg.DatabaseURL)
	if err != nil {
		log.Printf("WARN: audit log disabled: %v", err)
		audit = nil
	} else {
		defer audit.Close()
	}

	// Initialize artifact storage
	artifacts := storage.New(cfg.UploadDir, cfg.FeedbackResponsePath)

	// Initialize model pipeline
	pipe := pipeline.New(pipeline.Config{
		Python:          cfg.PythonBin,
		ModelScript:     cfg.ModelScript,
		ConvertScript:   cfg.ConvertScript,
		KeywordScript:   cfg.KeywordScript,
		ClusterScript:   cfg.ClusterScript,
		WeightsPath:     cfg.WeightsPath,
		ResultPath:      cfg.ResultPath,
		NamedResultPath: cfg.NamedResultPath,
		StageTimeout:    cfg.StageTimeout,
	}, &runner.ExecRunner{Dir: cfg.ModelWorkDir}, artifacts)

	// Initialize session store
	sessions := session.NewStore(cfg.SessionTTL)
	defer sessions.Close()

	// Initialize service
	svc := service.New(sessions, artifacts, pipe, audit)

	// Initialize handler
	h := v1.NewHandler(svc)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Stopped")
}
