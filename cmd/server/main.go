package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"subtrack-api/internal/api"
	"subtrack-api/internal/config"
	"subtrack-api/internal/database"
	"subtrack-api/internal/middleware"
	"subtrack-api/pkg/logging"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the server and blocks until shutdown
func run() error {
	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	// Initialize logging
	logging.InitLogging(logging.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: !cfg.IsRelease(),
	})
	defer logging.Sync()

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	rdb, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		database.Close(db, nil)
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer database.Close(db, rdb)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery())

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(cfg, db, rdb))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return serve(srv, quit)
}

// serve runs srv until a signal arrives on quit or the listener fails
func serve(srv *http.Server, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		logging.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}
	logging.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}
	logging.Infof("Server exited")
	return nil
}
