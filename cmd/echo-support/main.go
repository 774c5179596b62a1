package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echolabs/echo-support-go/internal/config"
	"github.com/echolabs/echo-support-go/internal/handler"
	"github.com/echolabs/echo-support-go/internal/infra/firestore"
	"github.com/echolabs/echo-support-go/internal/infra/llm"
	"github.com/echolabs/echo-support-go/internal/infra/observability"
	"github.com/echolabs/echo-support-go/internal/infra/resilience"
	"github.com/echolabs/echo-support-go/internal/port"
	"github.com/echolabs/echo-support-go/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("model", cfg.CompletionModel),
		zap.String("agent_id", cfg.AgentID),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("strict_persistence", cfg.StrictPersistence),
	)

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_2_API_KEY is not set, completion calls will be rejected by the provider")
	}

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "echo-support")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("completion-provider")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	completions := llm.NewClient(httpClient, cfg.GeminiBaseURL, cfg.GeminiAPIKey, cb, resilienceCfg)

	// The log store is optional: without a credential the handle stays
	// nil and log operations report unavailable.
	var store port.LogStore
	if cfg.FirebaseServiceAccount != "" {
		fsStore, err := firestore.NewLogStore(context.Background(), cfg.FirebaseServiceAccount, logger)
		if err != nil {
			logger.Error("firestore init failed, continuing without log store", zap.Error(err))
		} else {
			defer fsStore.Close()
			store = fsStore
			logger.Info("firestore log store initialized")
		}
	} else {
		logger.Warn("FIREBASE_SERVICE_ACCOUNT is empty, log store disabled")
	}

	// --- Service ---
	supportSvc := service.NewSupport(completions, store, service.Options{
		Model:             cfg.CompletionModel,
		AgentID:           cfg.AgentID,
		ListLimit:         cfg.LogListLimit,
		StrictPersistence: cfg.StrictPersistence,
	}, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(supportSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
