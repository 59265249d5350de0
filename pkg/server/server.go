// Package server exposes the monitor over HTTP: a JSON API for the snapshot,
// estimates, and settings, plus a Prometheus scrape endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homevolt/homevolt/pkg/log"
	"github.com/homevolt/homevolt/pkg/monitor"
	"github.com/homevolt/homevolt/pkg/types"
)

// Server handles the HTTP API for the Homevolt monitor.
type Server struct {
	monitor *monitor.Monitor

	listenAddr string
	serverName string
	httpServer *http.Server
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(m *monitor.Monitor) *Server {
	srv := &Server{
		monitor:    m,
		serverName: "homevolt",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(s.monitor))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/estimates", s.handleEstimates)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.serverNameMiddleware(gziphandler.GzipHandler(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, updated, _ := s.monitor.Current()
	if snapshot == nil {
		writeJSONError(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, struct {
		Metrics    map[string]any            `json:"metrics"`
		Attributes map[string]map[string]any `json:"attributes"`
		Updated    time.Time                 `json:"updated"`
	}{
		Metrics:    snapshot.Metrics,
		Attributes: snapshot.Attributes,
		Updated:    updated,
	})
}

func (s *Server) handleEstimates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Estimates []monitor.Estimate `json:"estimates"`
	}{Estimates: s.monitor.Estimates()})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.monitor.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings types.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.monitor.UpdateSettings(r.Context(), settings); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Ctx(r.Context()).InfoContext(r.Context(), "settings updated")
	writeJSON(w, s.monitor.Settings())
}

// handleHealth reports whether the gateway is currently reachable. The
// process itself being up is covered by /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot, updated, lastErr := s.monitor.Current()
	status := "ok"
	var lastError string
	if lastErr != nil {
		status = "degraded"
		lastError = lastErr.Error()
	}
	if snapshot == nil {
		status = "starting"
	}
	writeJSON(w, struct {
		Status    string    `json:"status"`
		Updated   time.Time `json:"updated,omitzero"`
		LastError string    `json:"lastError,omitempty"`
	}{
		Status:    status,
		Updated:   updated,
		LastError: lastError,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) serverNameMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
