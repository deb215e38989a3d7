package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	// cancelBase ends every request context; open streams never go idle,
	// so Shutdown alone would wait on them until its deadline.
	cancelBase context.CancelFunc
}

func New(port string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		httpServer: &http.Server{
			Addr:        port,
			Handler:     h2c.NewHandler(handler, &http2.Server{}),
			BaseContext: func(net.Listener) context.Context { return baseCtx },
		},
		logger:     logger,
		cancelBase: cancel,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting chat relay", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.httpServer.Shutdown(ctx)
}
