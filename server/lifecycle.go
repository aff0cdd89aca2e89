package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
)

// portAttempts is how many ports after the configured one Start tries.
const portAttempts = 10

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", newState.String())
}

// listen binds the configured port, falling back to the next free one.
func (s *Server) listen() (net.Listener, error) {
	var lastErr error
	for i := 0; i <= portAttempts; i++ {
		port := s.cfg.Port + i
		ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(port)))
		if err == nil {
			if i > 0 {
				s.logger.Infow("Port in use, using alternative",
					"requested_port", s.cfg.Port,
					"actual_port", port)
			}
			return ln, nil
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "no available port in range %d-%d", s.cfg.Port, s.cfg.Port+portAttempts)
}

// Start binds the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve answers requests on ln until Stop. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if s.limiters != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pruneLimiters()
		}()
	}

	s.setState(ServerStateRunning)
	s.logger.Infow("HTTP server listening",
		logger.FieldAddress, ln.Addr().String(),
		"clients", s.clientCount())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// pruneLimiters drops idle per-client limiters until the server stops.
func (s *Server) pruneLimiters() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.limiters.prune(limiterIdle); n > 0 {
				s.logger.Debugw("Pruned idle rate limiters", logger.FieldCount, n)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the server and closes websocket clients.
func (s *Server) Stop() error {
	if s.getState() == ServerStateStopped {
		return nil
	}
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()

	var shutdownErr error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		shutdownErr = srv.Shutdown(ctx)
		cancel()
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.mu.Lock()
	clientsToClose := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clientsToClose = append(clientsToClose, client)
		delete(s.clients, client)
	}
	s.mu.Unlock()

	if len(clientsToClose) > 0 {
		s.logger.Infow("Closing client connections", logger.FieldCount, len(clientsToClose))
		for _, client := range clientsToClose {
			client.conn.Close()
		}
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debugw("All goroutines stopped cleanly")
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Goroutine shutdown timed out, forcing exit",
			"timeout", ShutdownTimeout)
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return errors.Wrap(shutdownErr, "shutdown")
}
