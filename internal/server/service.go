package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/flushfinder/flushfinder/internal/logging"
)

// Timeouts shared by every server in this package.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds a graceful shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// service runs an http.Server on its own listener in the background.
type service struct {
	name       string
	addr       string
	logger     logging.Logger
	httpServer *http.Server
	listener   net.Listener
	done       chan error
}

func (s *service) start(handler http.Handler) error {
	if s.httpServer != nil {
		return fmt.Errorf("%s already started", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	s.done = make(chan error, 1)

	s.logger.Info("starting "+s.name, "addr", ln.Addr().String())
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

func (s *service) shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down " + s.name)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}

func (s *service) boundAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
