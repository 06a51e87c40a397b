package server

import (
	"errors"
	"fmt"
	"net"

	"github.com/kianooshaz/hello-web-world/internal/request"
	"github.com/kianooshaz/hello-web-world/internal/response"
)

// handleConnection serves exactly one request on conn and closes it. The
// returned error has already been logged.
func (s *Server) handleConnection(conn net.Conn) error {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := s.logger().With("remote", remote)
	logger.Info("start handle client")

	var route response.Route
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
		return fmt.Errorf("read request from %s: %w", remote, err)
	default:
		logger.Info("request", "request", req)
		route = response.Lookup(req.Target)
	}

	logger.Info("write response", "status", route.StatusCode)
	n, err := response.Write(conn, route, s.now())
	if err != nil {
		logger.Error("handle client error", "err", err)
		return fmt.Errorf("respond to %s: %w", remote, err)
	}
	logger.Debug("response written", "bytes", n)
	return nil
}
