// Package api exposes the store, the secondary index and raw inspection over
// a REST surface.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apimiddleware "github.com/starklens/starklens/api/middleware"
	"github.com/starklens/starklens/index"
	"github.com/starklens/starklens/resolve"
	"github.com/starklens/starklens/storage"
)

// Server represents the API server
type Server struct {
	config   *Config
	logger   *zap.Logger
	store    *storage.Store
	index    *index.Store
	syncer   *index.Syncer
	resolver *resolve.Resolver
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new API server
func NewServer(config *Config, logger *zap.Logger, store *storage.Store, idx *index.Store, syncer *index.Syncer) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		config:   config,
		logger:   logger,
		store:    store,
		index:    idx,
		syncer:   syncer,
		resolver: resolve.New(store),
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s, nil
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware() {
	// Recovery middleware (must be first)
	s.router.Use(apimiddleware.Recovery(s.logger))

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(apimiddleware.LoggerWithLevel(s.logger))

	if s.config.EnableRateLimit {
		s.router.Use(apimiddleware.RateLimit(
			s.config.RateLimitPerSecond,
			s.config.RateLimitBurst,
			s.logger,
		))
		s.logger.Info("rate limiting enabled",
			zap.Float64("rate_per_second", s.config.RateLimitPerSecond),
			zap.Int("burst", s.config.RateLimitBurst),
		)
	}

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, allowedOrigin := range s.config.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)

		r.Get("/blocks", s.handleListBlocks)
		r.Get("/blocks/{number}", s.handleGetBlock)
		r.Get("/blocks/{number}/transactions", s.handleBlockTransactions)
		r.Get("/blocks/{number}/state-diff", s.handleBlockStateDiff)

		r.Get("/transactions/{hash}", s.handleGetTransaction)

		r.Get("/contracts/{address}", s.handleGetContract)
		r.Get("/contracts/{address}/storage", s.handleContractStorage)

		r.Get("/classes/{hash}", s.handleGetClass)

		r.Route("/index", func(r chi.Router) {
			r.Get("/status", s.handleIndexStatus)
			r.Post("/sync", s.handleIndexSync)
			r.Post("/reset", s.handleIndexReset)
			r.Get("/transactions", s.handleIndexTransactions)
			r.Post("/query", s.handleIndexQuery)
			r.Get("/tables", s.handleIndexTables)
		})

		r.Route("/raw", func(r chi.Router) {
			r.Get("/cf", s.handleListColumnFamilies)
			r.Get("/cf/{name}/stats", s.handleCFStats)
			r.Get("/cf/{name}/keys", s.handleCFKeys)
			r.Get("/cf/{name}/value", s.handleCFValue)
			r.Post("/cf/{name}/values", s.handleCFValues)
		})

		r.Route("/schema", func(r chi.Router) {
			r.Get("/", s.handleSchemaAll)
			r.Get("/categories", s.handleSchemaCategories)
			r.Get("/category/{category}", s.handleSchemaCategory)
			r.Get("/cf/{name}", s.handleSchemaCF)
		})
	})
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("address", s.config.Address()))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped gracefully")
	return nil
}

// Router returns the underlying chi router (for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
