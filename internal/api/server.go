package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/contact-manager/internal/config"
	"github.com/ignite/contact-manager/internal/service/contact"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new API server around the contact service.
// limiter is optional; pass nil to serve without rate limiting.
func NewServer(cfg config.ServerConfig, svc *contact.Service, limiter *RateLimiter) *Server {
	handlers := NewContactHandlers(svc)
	router := SetupRoutes(cfg, handlers, limiter)

	return &Server{
		config:  cfg,
		handler: router,
		router:  router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       s.config.Timeout(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.config.Timeout(),
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
