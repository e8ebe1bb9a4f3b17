package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/discovery"
	"github.com/normanking/pmcortex/internal/llm"
	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
	"github.com/normanking/pmcortex/internal/orchestrator"
	"github.com/normanking/pmcortex/internal/projects"
	"github.com/normanking/pmcortex/internal/router"
)

// Deps are the services the HTTP API delegates to.
type Deps struct {
	Store        *data.Store
	Orchestrator *orchestrator.Orchestrator
	Discovery    *discovery.Coordinator
	Projects     *projects.Service

	// Optional, reported by the LLM stats endpoint.
	Provider   llm.Provider
	Classifier *router.Classifier

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg        *Config
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	startTime  time.Time
	log        *logging.Logger
}

// New creates a server and registers its routes.
func New(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		log:       logging.Global().WithComponent("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics/llm", s.handleLLMMetrics)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleRegisterProject)
			r.Get("/", s.handleListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Get("/features", s.handleListFeatures)
				r.Post("/features/{featureID}/query", s.handleFeatureQuery)
				r.Post("/discovery", s.handleEnqueueDiscovery)
				r.Get("/discovery", s.handleDiscoveryStatus)
				r.Post("/feasibility", s.handleFeasibility)
			})
		})

		r.Post("/chats/{chatID}/messages", s.handleChatMessage)
		r.Get("/chats/{chatID}", s.handleGetChat)
		r.Get("/feasibilities/{feasibilityID}", s.handleGetFeasibility)
		r.Post("/orchestrate", s.handleOrchestrate)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("[Server] listening on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("[Server] shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// instrument records request count and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		s.log.Response(r.Method, r.URL.Path, status, time.Since(start))
	})
}
