// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/helmsman-media/helmsman/internal/logging"
)

// Server runs the HTTP API as a suture.Service: Serve blocks until the
// context is canceled, then shuts the listener down gracefully.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewServer creates a Server listening on addr with the given handler.
func NewServer(addr string, handler http.Handler, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       2 * timeout,
		},
		shutdownTimeout: 10 * time.Second,
	}
}

// Serve runs the listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "http-server"
}
