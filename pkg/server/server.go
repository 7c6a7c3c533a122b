// Package server exposes the bridge over HTTP: a JSON API for
// messages, contracts, and locks, plus a server-sent-events stream of
// the broadcast feed.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daviddao/agentbridge/pkg/bridge"
)

// Server wraps a Bridge with an HTTP surface.
type Server struct {
	bridge *bridge.Bridge
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds the server and registers its routes.
func New(bridge *bridge.Bridge, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bridge: bridge,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/messages", s.handlePublish)
	s.mux.HandleFunc("GET /api/messages/pending", s.handlePending)
	s.mux.HandleFunc("POST /api/messages/ack", s.handleAck)

	s.mux.HandleFunc("POST /api/contracts", s.handleCreateContract)
	s.mux.HandleFunc("GET /api/contracts/{id}", s.handleGetContract)
	s.mux.HandleFunc("PATCH /api/contracts/{id}", s.handleUpdateContract)

	s.mux.HandleFunc("POST /api/locks", s.handleAcquireLock)
	s.mux.HandleFunc("POST /api/locks/renew", s.handleRenewLock)
	s.mux.HandleFunc("POST /api/locks/release", s.handleReleaseLock)

	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests and flushes pending contract writes.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s,
		// No WriteTimeout: the events stream is long-lived.
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
	}

	if err := s.bridge.Flush(); err != nil {
		s.logger.Error("flush on shutdown failed", "error", err)
		return err
	}
	return nil
}
