// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/brandreach/outreach-platform/internal/config"
	"github.com/brandreach/outreach-platform/internal/handler"
	"github.com/brandreach/outreach-platform/internal/llm"
	"github.com/brandreach/outreach-platform/internal/middleware"
	natsclient "github.com/brandreach/outreach-platform/internal/nats"
	"github.com/brandreach/outreach-platform/internal/outreach"
	"github.com/brandreach/outreach-platform/internal/service"
	"github.com/brandreach/outreach-platform/pkg/logger"
	"github.com/brandreach/outreach-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "outreach-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Ensure JetStream stream exists
	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client (optional: draft assistant is disabled without one)
	var llmClient llm.Client
	provider, apiKey := selectLLMProvider(cfg)
	if apiKey != "" {
		client, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, draft assistant disabled", zap.Error(err))
		} else {
			llmClient = client
			log.Info("draft assistant enabled",
				zap.String("provider", client.Name()),
				zap.Strings("models", client.Models()),
			)
		}
	}

	// Initialize services
	policy := outreach.Policy{
		Cooldown:      cfg.CooldownDuration,
		MaxUnanswered: cfg.MaxUnanswered,
	}
	threadSvc := service.NewThreadService(streamManager, log)

	// Rebuild the thread index from the durable log before taking traffic;
	// the unanswered-send cap is only as good as the histories behind it.
	restored, err := threadSvc.RebuildFromLog(ctx, streamManager)
	if err != nil {
		log.Error("failed to rebuild thread index from log", zap.Error(err))
		os.Exit(1)
	}
	log.Info("thread index rebuilt", zap.Int("messages", restored))

	outreachSvc := service.NewOutreachService(threadSvc, streamManager, policy, log)
	draftSvc := service.NewDraftService(llmClient, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	threadHandler := handler.NewThreadHandler(threadSvc, log)
	outreachHandler := handler.NewOutreachHandler(outreachSvc, log)
	draftHandler := handler.NewDraftHandler(draftSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Compose and eligibility
		r.Post("/outreach", outreachHandler.Compose)
		r.Post("/outreach/draft", draftHandler.Draft)
		r.Get("/influencers/{id}/eligibility", outreachHandler.Eligibility)

		// Threads
		r.Route("/threads", func(r chi.Router) {
			r.Get("/", threadHandler.List)
			r.Get("/{id}", threadHandler.Get)
			r.Get("/{id}/messages", threadHandler.Messages)
		})

		// Relay webhook: records influencer replies
		r.With(middleware.RequireScope(middleware.ScopeRelay)).
			Post("/replies", outreachHandler.RecordReply)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// selectLLMProvider picks the draft assistant provider from configuration:
// the configured default when its key is present, otherwise whichever
// provider has a key. An empty key disables the assistant.
func selectLLMProvider(cfg *config.Config) (llm.Provider, string) {
	switch {
	case llm.Provider(cfg.DefaultLLM) == llm.ProviderOpenAI && cfg.OpenAIAPIKey != "":
		return llm.ProviderOpenAI, cfg.OpenAIAPIKey
	case cfg.AnthropicAPIKey != "":
		return llm.ProviderAnthropic, cfg.AnthropicAPIKey
	case cfg.OpenAIAPIKey != "":
		return llm.ProviderOpenAI, cfg.OpenAIAPIKey
	default:
		return llm.ProviderAnthropic, ""
	}
}
