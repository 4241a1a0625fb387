// Package server provides the HTTP API for notemind.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/config"
	"github.com/hyperjump/notemind/internal/indexer"
	"github.com/hyperjump/notemind/internal/search"
	"github.com/hyperjump/notemind/internal/storage"
	"github.com/hyperjump/notemind/pkg/utils"
)

// Server is the HTTP server for the notemind API. All endpoints are read-only with
// respect to the vector store.
type Server struct {
	search      *search.Service
	composer    *search.Composer
	repo        *storage.Repository
	coordinator *indexer.Coordinator
	config      *config.Config
	limiter     *rateLimiter
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server. coordinator may be nil when nothing is indexing in-process.
func NewServer(
	svc *search.Service,
	composer *search.Composer,
	repo *storage.Repository,
	coordinator *indexer.Coordinator,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      svc,
		composer:    composer,
		repo:        repo,
		coordinator: coordinator,
		config:      cfg,
		limiter:     newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		logger:      utils.OrNop(logger),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.middleware)
		r.Post("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)
		r.Get("/keyword", s.handleKeyword)
		r.Get("/notes", s.handleNotes)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
}

// Start listens on the configured address and serves until Stop. It returns
// http.ErrServerClosed after a graceful stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve serves the API on ln until Stop. Once Stop has been called, Serve closes ln and
// returns http.ErrServerClosed, even if Stop ran first.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting server", zap.String("addr", ln.Addr().String()))
	return s.server.Serve(ln)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}
