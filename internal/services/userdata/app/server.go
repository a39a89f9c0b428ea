// Package server wires the user data runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/datapulse/internal/metrics"
	"github.com/louisbranch/datapulse/internal/platform/httpx"
	"github.com/louisbranch/datapulse/internal/platform/storage/sqltrace"
	"github.com/louisbranch/datapulse/internal/platform/timeouts"
	"github.com/louisbranch/datapulse/internal/services/userdata/api/rest"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage/postgres"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage/sqlite"
)

// Config defines the inputs for the user data API server.
type Config struct {
	// HTTPAddr is the listen address, e.g. ":8000".
	HTTPAddr string
	// DatabaseURL selects the backing store: postgres:// and postgresql://
	// URLs open PostgreSQL, anything else is treated as a SQLite path.
	DatabaseURL string
}

// Server hosts the user data HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      storage.Store
}

// New creates a configured server listening on the configured address.
func New(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("database url is required")
	}

	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}

	m := metrics.New()
	store, err := openStore(dsn, m)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	handler := httpx.Chain(
		rest.NewHandler(rest.NewService(store), m, store),
		m.InstrumentHTTP,
		httpx.RequestID(),
		httpx.RecoverPanic(),
	)
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the HTTP server until context cancellation.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("user data API listening on %s", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close user data store: %v", err)
		}
	}
}

func openStore(dsn string, rec sqltrace.Recorder) (storage.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		store, err := postgres.Open(dsn, rec)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path, rec)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
