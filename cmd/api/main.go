package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/orderdesk/internal/api/router"
	appbootstrap "github.com/wolfman30/orderdesk/internal/app/bootstrap"
	appconfig "github.com/wolfman30/orderdesk/internal/config"
	"github.com/wolfman30/orderdesk/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/orderdesk/internal/http/middleware"
	"github.com/wolfman30/orderdesk/internal/observability/metrics"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting orderdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; chatbot routes will reject every request")
	}

	ctx := context.Background()
	pool, err := appbootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditSvc, auditDB := appbootstrap.BuildAuditService(pool, cfg, logger)
	if auditDB != nil {
		defer auditDB.Close()
	}

	metricsHandler, chatMetrics := setupChatbotMetrics()
	store := appbootstrap.BuildOrderStore(pool, cfg, logger)
	engine := appbootstrap.BuildEngine(cfg, store, chatMetrics, logger)

	chatbotHandler := handlers.NewChatbotHandler(handlers.ChatbotHandlerConfig{
		Engine:      engine,
		Transcripts: appbootstrap.BuildTranscriptStore(redisClient, cfg),
		Audit:       auditSvc,
		Logger:      logger,
	})

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()

	r := router.New(&router.Config{
		Logger:             logger,
		ChatbotHandler:     chatbotHandler,
		AuthSecret:         cfg.AuthJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		Readiness: func(ctx context.Context) error {
			if pool == nil {
				return nil
			}
			return pool.Ping(ctx)
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupChatbotMetrics builds a dedicated registry exposing chatbot, Go
// runtime and process metrics.
func setupChatbotMetrics() (http.Handler, *metrics.ChatbotMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatbotMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}
