package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the bot's runtime stats on /health. The endpoint answers
// 503 while the ServerQuery session is down so orchestrators can restart us.
type Server struct {
	port     int
	provider ports.StatsProvider
	logger   *logging.Logger

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

func NewServer(port int, provider ports.StatsProvider, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		port:     port,
		provider: provider,
		logger:   logger.With("component", "health"),
	}
}

// Handler returns the mux serving /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start binds the listener and serves until ctx is cancelled. A port of zero
// or less disables the server.
func (s *Server) Start(ctx context.Context) error {
	if s.port <= 0 {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("health listen on port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		s.logger.Infof(ctx, "Health server listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf(ctx, "Health server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf(shutdownCtx, "Health server shutdown error: %v", err)
		}
	}()

	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.provider.GetStats()

	status := http.StatusOK
	if !stats.Connected {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Errorf(r.Context(), "JSON encoding error in /health: %v", err)
	}
}

func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
