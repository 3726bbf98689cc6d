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

	"github.com/modelaudit/modelaudit/internal/api"
	"github.com/modelaudit/modelaudit/internal/integrations"
	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/metrics"
	"github.com/modelaudit/modelaudit/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "modelaudit",
		Version:     "1.0.0",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logging.SetGlobalLogger(logger)

	// Initialize tracing
	tracer, err := tracing.NewTracingService(&tracing.Config{
		ServiceName:    "modelaudit",
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize Prometheus metrics
	prom := metrics.NewMetrics(metrics.DefaultConfig())

	deps := integrations.Deps{
		Metrics: prom,
		Tracer:  tracer,
	}

	// Register the scanner integrations
	manager := integrations.NewManager()

	register := func(name string, build func(config.IntegrationConfig, integrations.Deps) *integrations.Integration) {
		ic, ok := cfg.Integrations[name]
		if !ok {
			logger.Warn("integration not configured, skipping", "integration", name)
			return
		}
		if err := manager.Register(build(ic, deps)); err != nil {
			log.Fatalf("Failed to register integration %s: %v", name, err)
		}
		logger.Info("integration registered", "integration", name, "base_url", ic.BaseURL)
	}

	register(config.IntegrationGarak, integrations.NewGarak)
	register(config.IntegrationCounterfit, integrations.NewCounterfit)
	register(config.IntegrationART, integrations.NewART)
	register(config.IntegrationSecureTopTen, integrations.NewSecureTopTen)

	// Create API router
	router := api.NewRouter(cfg, manager, prom, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}

	logger.Info("server exited")
}
