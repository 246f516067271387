// Package debugsrv is a tiny admin HTTP surface for an open index: a
// health check, a JSON dump of its structural counters, and a trigger
// for Optimize — adapted from the teacher's App/ServeContext graceful
// shutdown skeleton (app.go) so an operator embedding this module gets
// the same drain-on-SIGTERM behavior a go-mizu web service would.
package debugsrv

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tursodatabase/go-fts5"
)

// Server owns an HTTP server exposing /healthz, /stats and /optimize
// for one *fts5.Index, plus the standard-library graceful shutdown
// machinery (readiness flip, optional pre-shutdown delay, structured
// logs) the teacher's App provides.
type Server struct {
	idx *fts5.Index
	mux *http.ServeMux

	preShutdownDelay time.Duration
	shutdownTimeout  time.Duration

	shuttingDown atomic.Bool
	log          *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the server's logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPreShutdownDelay sets the delay after flipping readiness and
// before Shutdown, giving a load balancer time to notice /healthz
// turned unhealthy.
func WithPreShutdownDelay(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.preShutdownDelay = d
		}
	}
}

// WithShutdownTimeout sets the maximum duration for http.Server.Shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New builds a Server over idx with conservative defaults.
func New(idx *fts5.Index, opts ...Option) *Server {
	s := &Server{
		idx:              idx,
		preShutdownDelay: 1 * time.Second,
		shutdownTimeout:  15 * time.Second,
		log:              slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.mux = http.NewServeMux()
	s.mux.Handle("/healthz", s.healthzHandler())
	s.mux.Handle("/stats", s.statsHandler())
	s.mux.Handle("/optimize", s.optimizeHandler())
	return s
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.log }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// healthzHandler reports 200 while serving and 503 after shutdown
// begins (mirrors app.go's HealthzHandler).
func (s *Server) healthzHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if s.shuttingDown.Load() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
}

func (s *Server) statsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.idx.Stats())
	})
}

func (s *Server) optimizeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.idx.Optimize(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
}

// Listen starts the server at addr and handles SIGINT/SIGTERM.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	return s.serveWithSignals(srv, func() error { return srv.ListenAndServe() })
}

// Serve serves on a caller-supplied listener and handles SIGINT/SIGTERM.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{Addr: l.Addr().String(), Handler: s}
	return s.serveWithSignals(srv, func() error { return srv.Serve(l) })
}

// ServeContext runs srv until ctx is canceled, then performs a graceful
// drain (app.go's ServeContext, unchanged in shape).
func (s *Server) ServeContext(ctx context.Context, srv *http.Server, serveFn func() error) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv.BaseContext = func(net.Listener) context.Context { return baseCtx }

	log := s.Logger().With(
		slog.String("addr", srv.Addr),
		slog.Int("pid", os.Getpid()),
		slog.String("go_version", runtime.Version()),
	)
	log.Info("debug server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := serveFn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server start failed", slog.Any("error", err))
		}
		return err

	case <-ctx.Done():
		start := time.Now()
		s.shuttingDown.Store(true)
		log.Info("shutdown initiated")

		if s.preShutdownDelay > 0 {
			time.Sleep(s.preShutdownDelay)
		}

		drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(drainCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("graceful shutdown incomplete", slog.Any("error", err))
			_ = srv.Close()
			cancelBase()
		} else {
			cancelBase()
		}

		if err := <-errCh; err != nil {
			log.Error("server exit error after shutdown", slog.Any("error", err))
			return err
		}

		log.Info("server stopped gracefully", slog.Duration("duration", time.Since(start)))
		return nil
	}
}
