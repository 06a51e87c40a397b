package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kianooshaz/hello-web-world/internal/request"
	"github.com/kianooshaz/hello-web-world/internal/response"
)

// Server answers a single connection with the hello page, whatever was
// requested, and then stops listening.
type Server struct {
	Addr   string
	Logger *slog.Logger

	// Now stamps the page. Defaults to time.Now.
	Now func() time.Time

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

// Serve accepts one connection, handles it in the calling goroutine and
// closes the listener.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}
	defer s.listener.Close()

	logger := s.logger()
	logger.Info("start server", "addr", s.listener.Addr().String())

	conn, err := s.listener.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	return s.handleConnection(conn)
}

func (s *Server) handleConnection(conn net.Conn) error {
	defer conn.Close()

	logger := s.logger().With("remote", conn.RemoteAddr().String())
	logger.Info("start handle client")

	route := response.Hello
	req, err := request.Read(conn)
	switch {
	case errors.Is(err, request.ErrEmptyRequest):
		logger.Debug("client closed without a request")
		return nil
	case errors.Is(err, request.ErrMalformed):
		logger.Warn("bad request", "err", err)
		route = response.BadRequest
	case err != nil:
		logger.Error("handle client error", "err", err)
		return fmt.Errorf("read request: %w", err)
	default:
		logger.Info("request", "request", req)
	}

	logger.Info("write response", "status", route.StatusCode)
	if _, err := response.Write(conn, route, s.now()); err != nil {
		logger.Error("handle client error", "err", err)
		return err
	}
	return nil
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
