// Package server is the development server: it serves the destination tree,
// pushes live-reload events, and exposes health, status and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/livereload"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/metrics"
)

// Options configures the server.
type Options struct {
	Host        string
	Port        int
	Dest        string
	MetricsPath string         // Empty or a nil Registry disables metrics
	Registry    *prom.Registry // Served at MetricsPath
}

// StatusFunc returns the latest pass report, or nil before the first pass.
type StatusFunc func() *assemble.Report

// Server serves the built site.
type Server struct {
	opts   Options
	hub    *livereload.Hub
	status StatusFunc
	logger *slog.Logger
	srv    *http.Server
}

// New creates a server. A nil hub disables live reload.
func New(opts Options, hub *livereload.Hub, status StatusFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if status == nil {
		status = func() *assemble.Report { return nil }
	}
	return &Server{opts: opts, hub: hub, status: status, logger: logger}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var site http.Handler = noCache(http.FileServer(http.Dir(s.opts.Dest)))
	if s.hub != nil {
		site = livereload.Middleware(site)
		mux.Handle(livereload.EventsPath, s.hub)
		mux.Handle(livereload.ScriptPath, livereload.ScriptHandler())
	}
	mux.Handle("/", site)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	if s.opts.MetricsPath != "" && s.opts.Registry != nil {
		mux.Handle(s.opts.MetricsPath, metrics.HTTPHandler(s.opts.Registry))
	}
	return chain(s.logger, mux)
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Status          string                  `json:"status"`
	PassID          string                  `json:"pass_id,omitempty"`
	Scope           string                  `json:"scope,omitempty"`
	Reason          string                  `json:"reason,omitempty"`
	Started         *time.Time              `json:"started,omitempty"`
	Finished        *time.Time              `json:"finished,omitempty"`
	DurationMS      float64                 `json:"duration_ms,omitempty"`
	Outputs         []assemble.OutputRecord `json:"outputs,omitempty"`
	Removed         []string                `json:"removed,omitempty"`
	MissingIncludes int                     `json:"missing_includes"`
	Failures        []string                `json:"failures,omitempty"`
	Error           string                  `json:"error,omitempty"`
	Clients         int                     `json:"livereload_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: "pending"}
	if r := s.status(); r != nil {
		resp = StatusResponse{
			Status:          r.Status(),
			PassID:          r.PassID,
			Scope:           r.Scope.String(),
			Reason:          string(r.Scope.Reason),
			Started:         &r.Started,
			Finished:        &r.Finished,
			DurationMS:      float64(r.Duration().Microseconds()) / 1000,
			Outputs:         r.Outputs,
			Removed:         r.Removed,
			MissingIncludes: r.MissingIncludes,
		}
		for _, f := range r.Failures {
			resp.Failures = append(resp.Failures, f.Source+": "+f.Err.Error())
		}
		if r.Err != nil {
			resp.Error = r.Err.Error()
		}
	}
	if s.hub != nil {
		resp.Clients = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		s.logger.Error("failed to write status", logfields.Error(err))
	}
}

// Notify broadcasts a finished pass to live-reload clients.
func (s *Server) Notify(_ context.Context, r *assemble.Report) {
	if s.hub != nil && r != nil {
		s.hub.Broadcast(r.Hash())
	}
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// No write timeout: live-reload streams stay open.
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Development server listening", logfields.Addr("http://"+ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Development server stopped")
	return nil
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
