package chat

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/logger"
)

// Server accepts TCP connections and hands each one to the Handler.
type Server struct {
	handler *Handler
	log     *zap.Logger
}

// NewServer returns a Server feeding h.
func NewServer(h *Handler, log *zap.Logger) *Server {
	return &Server{
		handler: h,
		log:     logger.OrNop(log),
	}
}

// Listen binds addr for TCP on all interfaces when no host is given.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return ln, nil
}

// ListenAndServe binds addr and serves it until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := Listen(ctx, addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, which returns nil.
// Any other accept failure is returned and is meant to be fatal; sessions
// already running are not affected by either.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info("chat server listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("chat server stopped accepting")
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		s.log.Debug("connection accepted", zap.String("addr", conn.RemoteAddr().String()))
		s.handler.Go(ctx, conn, TransportTCP)
	}
}
