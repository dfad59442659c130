// Package server provides the HTTP server for the 1C exchange service.
//
// The server exposes one protocol endpoint plus health probes:
//
// # Exchange Endpoint
//
// GET/POST {basePath} - The CommerceML "exchange with website" endpoint.
// 1C drives it with type and mode query parameters (checkauth, init,
// file, import, query, success). Authentication is HTTP basic auth
// against the accounts configured under auth.users.
//
// # Health
//
//   - GET /health - Liveness probe
//   - GET /ready  - Readiness probe (checks the session store)
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sergey-gru/go-cml/internal/auth"
	"github.com/sergey-gru/go-cml/internal/config"
	"github.com/sergey-gru/go-cml/pkg/exchange"
)

// Pinger is implemented by stores that can report backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the exchange HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	httpSrv  *http.Server
	store    exchange.Store
	exchange *exchange.Handler
}

// New creates a new exchange server
func New(cfg *config.Config, store exchange.Store, delegate exchange.Delegate, logger *slog.Logger) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: logger,
		store:  store,
	}

	h, err := exchange.NewHandler(exchange.Config{
		UploadRoot:             cfg.Exchange.UploadRoot,
		DeleteFilesAfterImport: cfg.Exchange.DeleteFilesAfterImport,
		UseZip:                 cfg.Exchange.UseZip,
		FileLimit:              cfg.Exchange.FileLimit,
		SessionCookie:          cfg.Exchange.SessionCookie,
	}, store, delegate, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing exchange handler: %w", err)
	}
	s.exchange = h

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "base_path", s.config.Server.BasePath)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	basePath := strings.TrimSuffix(s.config.Server.BasePath, "/")
	if basePath == "" {
		basePath = "/exchange"
	}

	// Health checks (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	// The 1C client uses both GET and POST against the same URL, so the
	// route is method-agnostic.
	guard := auth.New(s.config.Auth, s.logger)
	mux.Handle(basePath, guard.Middleware(s.exchange))
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Error("store not ready", "error", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ready")
}
