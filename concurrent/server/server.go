package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kianooshaz/hello-web-world/internal/workerpool"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("server closed")

// Server routes "/" and "/about" and answers 404 for every other target.
// Each accepted connection is handled by its own worker.
type Server struct {
	Addr   string
	Logger *slog.Logger

	// Now stamps each page. Defaults to time.Now.
	Now func() time.Time

	// Pool bounds the number of connections handled at once. When nil every
	// connection gets a new goroutine.
	Pool *workerpool.Pool

	listener net.Listener
}

// Listen binds s.Addr.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	s.listener = l
	return nil
}

func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve accepts connections until the listener is closed. Accept errors are
// logged and do not stop the loop.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}

	logger := s.logger()
	logger.Info("start server", "addr", s.listener.Addr().String())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			logger.Error("accept error", "err", err)
			continue
		}

		s.dispatch(conn)
	}
}

// Close stops the accept loop. Connections already dispatched keep running.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) dispatch(conn net.Conn) {
	if s.Pool == nil {
		go s.handleConnection(conn)
		return
	}

	err := s.Pool.Submit(context.Background(), func(ctx context.Context) error {
		// a forced pool shutdown unblocks reads and writes on conn
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()
		return s.handleConnection(conn)
	})
	if err != nil {
		s.logger().Error("dispatch error", "remote", conn.RemoteAddr().String(), "err", err)
		conn.Close()
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
