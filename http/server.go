// Package http serves the prediction API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is the HTTP server of the prediction API.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig configures the server and its middleware.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig returns the default server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8000,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter wires the routes behind the middleware chain. The prediction
// stream skips the timeout and body limit, which apply per message instead.
func NewRouter(config ServerConfig, predictor Predictor, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	handler := NewHandler(predictor, logger)
	api := http.NewServeMux()
	handler.Register(api)

	root := http.NewServeMux()
	root.Handle("/", Chain(
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
		TimeoutMiddleware(config.Timeout),
	)(api))
	root.Handle("GET /ws/predict", NewStreamHandler(handler, config))

	return Chain(
		LoggerMiddleware(logger),
		RecoveryMiddleware(logger),
	)(root)
}

// withDefaults fills unset fields from DefaultServerConfig. A zero
// MaxBodyBytes stays zero and disables the limit.
func (c ServerConfig) withDefaults() ServerConfig {
	defaults := DefaultServerConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = defaults.AllowedOrigins
	}
	return c
}

// NewServer builds a server listening on config.Port.
func NewServer(config ServerConfig, predictor Predictor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewRouter(config, predictor, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start blocks until the server stops. It returns nil after Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop waits up to five seconds for in-flight requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
