// Package server provides the optional HTTP status endpoint for fingerled.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerled/internal/logging"
	"github.com/ayusman/fingerled/internal/store"
	"github.com/ayusman/fingerled/internal/telemetry"
)

// Config holds the server configuration.
type Config struct {
	Board    *telemetry.Board
	Store    *store.Store
	Gatherer prometheus.Gatherer
	Logger   logrus.FieldLogger
}

// Server serves read-only views of the control loop. It never touches the
// camera or the serial port.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    logrus.FieldLogger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log.WithField("component", "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Board != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Board))
		s.mux.Handle("/api/count", NewCountHandler(s.config.Board, s.log))
	}

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/history", s.handleHistory)
	}

	if s.config.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.config.Board.Snapshot())
}

// handleHistory handles GET /api/history?session=<id>&limit=<n>.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		txs []*store.Transmission
		err error
	)

	if session := r.URL.Query().Get("session"); session != "" {
		if _, err := s.config.Store.Sessions().GetByID(session); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			s.log.WithError(err).Error("load session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		txs, err = s.config.Store.Transmissions().ListBySession(session)
	} else {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		txs, err = s.config.Store.Transmissions().Recent(limit)
	}

	if err != nil {
		s.log.WithError(err).Error("load transmissions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []*store.Transmission{}
	}

	writeJSON(w, txs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.WithField("addr", addr).Info("status server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
