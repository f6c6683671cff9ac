// Package gateway exposes the client's HTTP surface: JSON views assembled
// from the ledger backend, the expense write path, and the local settings.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"splitview/internal/log"
)

// Server wraps the HTTP server with its routes and middleware.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	limiter    *rateLimiter
}

// Config holds the server's tunables.
type Config struct {
	Port              string
	RequestsPerMinute int
}

// New builds the server. A RequestsPerMinute of zero disables rate limiting.
func New(cfg Config, views ViewProvider, ledger LedgerWriter, prefs PreferenceStore, logger *log.Logger) *Server {
	logger = logger.WithComponent(log.ComponentGateway)
	h := &handlers{views: views, ledger: ledger, prefs: prefs, logger: logger}

	r := chi.NewRouter()
	r.Use(trace(logger))
	var limiter *rateLimiter
	if cfg.RequestsPerMinute > 0 {
		limiter = newRateLimiter(cfg.RequestsPerMinute)
		r.Use(limiter.middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Get("/activity", h.activity)
		r.Post("/groups", h.createGroup)
		r.Get("/groups/{groupID}", h.groupDetail)
		r.Post("/groups/{groupID}/expenses", h.submitExpense)
		r.Get("/users", h.listUsers)
		r.Post("/users", h.createUser)
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.updateSettings)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:           ":" + cfg.Port,
			Handler:        r,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 64 << 10,
		},
		logger:  logger,
		limiter: limiter,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.shutdown()
	}
	return s.httpServer.Shutdown(ctx)
}
