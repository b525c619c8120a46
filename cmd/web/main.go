package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/handlers"
	"fraudguard/internal/middleware"
	"fraudguard/internal/observability"
	"fraudguard/internal/scoring"
	"fraudguard/internal/server"
	"fraudguard/internal/services"
	"fraudguard/internal/storage"
	"fraudguard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	startupTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", observability.Version,
		"fallback_policy", cfg.Scoring.FallbackPolicy,
		"scoring_service", cfg.Scoring.ServiceURL != "",
		"persistent_store", cfg.Database.URL != "",
	)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	store, err := newStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open transaction store", "error", err)
		os.Exit(1)
	}

	evaluator, err := newEvaluator(cfg.Scoring, logger)
	if err != nil {
		logger.Error("failed to build evaluator", "error", err)
		os.Exit(1)
	}

	handler := newHandler(cfg, store, evaluator, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("tracing", shutdownTracing)
	gracefulServer.RegisterShutdownHook("store", func(ctx context.Context) error {
		logger.Info("closing transaction store")
		return store.Close()
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

func newStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (storage.TransactionStore, error) {
	if cfg.URL == "" {
		logger.Info("using in-memory transaction store")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewPostgresStore(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("using postgres transaction store")
	return store, nil
}

func newEvaluator(cfg config.ScoringConfig, logger *slog.Logger) (*scoring.Evaluator, error) {
	policy, err := scoring.ParsePolicy(cfg.FallbackPolicy)
	if err != nil {
		return nil, err
	}

	// A nil interface, not a nil *RemoteClient, when no service is configured.
	var remote scoring.RemoteScorer
	if cfg.ServiceURL != "" {
		remote = scoring.NewRemoteClient(scoring.RemoteConfig{
			BaseURL:         cfg.ServiceURL,
			Timeout:         cfg.Timeout,
			BreakerFailures: uint32(cfg.BreakerFailures),
			BreakerCooldown: cfg.BreakerCooldown,
		}, logger)
	}

	return scoring.NewEvaluator(remote, policy, logger), nil
}

func newHandler(cfg *config.Config, store storage.TransactionStore, evaluator *scoring.Evaluator, logger *slog.Logger) http.Handler {
	analytics := services.NewAnalytics(store, logger)
	detection := services.NewDetectionService(evaluator, store, logger)
	bulk := services.NewBulkAnalyzer(evaluator, cfg.Bulk.Concurrency, cfg.Bulk.SampleSize, logger)

	apiHandlers := handlers.NewAPIHandlers(detection, bulk, analytics, handlers.BulkSettings{
		MaxUploadBytes: cfg.Bulk.MaxUploadBytes,
		Timeout:        cfg.Bulk.Timeout,
	}, evaluator.Policy().String(), logger)
	sseHandlers := handlers.NewSSEHandlers(analytics, logger)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(apiHandlers, sseHandlers, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(),
	)

	return middlewareChain(srv)
}
