package server

import (
	"log/slog"
	"net/http"

	"fraudguard/internal/handlers"
	"fraudguard/internal/metrics"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(api *handlers.APIHandlers, sse *handlers.SSEHandlers, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: api,
		sseHandlers: sse,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleAdminStats)
	s.mux.Handle("GET /metrics", metrics.Handler())

	// REST API endpoints
	s.mux.HandleFunc("POST /api/detect-fraud", s.apiHandlers.HandleDetectFraud)
	s.mux.HandleFunc("POST /api/analyze-csv", s.apiHandlers.HandleAnalyzeCSV)
	s.mux.HandleFunc("GET /api/transactions", s.apiHandlers.HandleListTransactions)
	s.mux.HandleFunc("POST /api/transactions", s.apiHandlers.HandleCreateTransaction)
	s.mux.HandleFunc("GET /api/transactions/{id}", s.apiHandlers.HandleGetTransaction)
	s.mux.HandleFunc("GET /api/stats", s.apiHandlers.HandleStats)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/stats", s.sseHandlers.HandleStats)
	s.mux.HandleFunc("GET /sse/latest-batch", s.sseHandlers.HandleLatestBatch)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
