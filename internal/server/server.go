package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"parwrk/internal/config"
	"parwrk/internal/store"
)

// Server is the work-distribution endpoint: it owns the store factories, the
// per-run locks, and the HTTP protocol state machine. One server coordinates
// many worker processes, possibly on other hosts.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	queues  *store.Factory
	history *store.Store[float64]
	clock   clockwork.Clock

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New constructs a server from config. The queue store backend is selected
// by the store URI scheme; the run-time history store always lives in its
// own (file-backed by default) store so predictions survive restarts.
func New(cfg *config.Config, log *zap.Logger, clock clockwork.Clock) (*Server, error) {
	queues, err := store.NewFactory(cfg.StoreURI, cfg.FilePoolSize)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	historyFactory, err := store.NewFactory(cfg.HistoryStoreURI(), cfg.FilePoolSize)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	historyAdapter, err := historyFactory.Open("run_times")
	if err != nil {
		return nil, fmt.Errorf("open run-time history: %w", err)
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		queues:     queues,
		history:    store.NewStore[float64](historyAdapter),
		clock:      clock,
		shutdownCh: make(chan struct{}),
	}, nil
}

// Handler returns the full HTTP handler: routes wrapped in auth and request
// logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("HEAD /health", s.handleHealth)
	mux.HandleFunc("GET /heartbeat", s.withRun(s.handleHeartbeat))
	mux.HandleFunc("POST /seed", s.withRun(s.handleSeed))
	mux.HandleFunc("POST /pop", s.withRun(s.handlePop))
	mux.HandleFunc("POST /complete_and_pop", s.withRun(s.handleCompleteAndPop))
	mux.HandleFunc("GET /report", s.withRun(s.handleReport))
	mux.HandleFunc("DELETE /shutdown", s.handleShutdown)

	return s.logging(s.auth(mux))
}

// Run serves until the context is cancelled or a shutdown request arrives,
// then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr), zap.String("store", s.cfg.StoreURI))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	case <-s.shutdownCh:
		s.log.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.queues.Close()
	return nil
}

func (s *Server) triggerShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
