package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultMaxRecvMsgSize = 4 << 20

type Option func(*Options)

type Options struct {
	port           int
	listener       net.Listener
	logger         *zap.Logger
	reflection     bool
	logging        bool
	recovery       bool
	maxRecvMsgSize int
	interceptors   []grpc.UnaryServerInterceptor
	serverOptions  []grpc.ServerOption
}

func WithPort(port int) Option { return func(o *Options) { o.port = port } }

// WithListener serves on lis instead of opening a TCP port. WithPort is
// ignored when a listener is given.
func WithListener(lis net.Listener) Option { return func(o *Options) { o.listener = lis } }

func WithLogger(logger *zap.Logger) Option { return func(o *Options) { o.logger = logger } }

func WithReflection(enabled bool) Option { return func(o *Options) { o.reflection = enabled } }

func WithLogging(enabled bool) Option { return func(o *Options) { o.logging = enabled } }

// WithRecovery turns handler panics into codes.Internal. On by default.
func WithRecovery(enabled bool) Option { return func(o *Options) { o.recovery = enabled } }

func WithMaxRecvMsgSize(bytes int) Option { return func(o *Options) { o.maxRecvMsgSize = bytes } }

// WithUnaryInterceptors appends interceptors that run after logging and
// recovery.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *Options) { o.interceptors = append(o.interceptors, interceptors...) }
}

func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(o *Options) { o.serverOptions = append(o.serverOptions, opts...) }
}

// Server wraps a grpc.Server with health reporting and graceful shutdown.
type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
	errCh        chan error
}

// New creates a new gRPC server using the builder options.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:           50051,
		logger:         zap.NewNop(),
		recovery:       true,
		maxRecvMsgSize: defaultMaxRecvMsgSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc-server")

	lis, err := listen(options)
	if err != nil {
		return nil, err
	}

	// Logging wraps recovery so a recovered panic is logged with its status.
	var chain []grpc.UnaryServerInterceptor
	if options.logging {
		chain = append(chain, LoggingInterceptor(logger))
	}
	if options.recovery {
		chain = append(chain, RecoveryInterceptor(logger))
	}
	chain = append(chain, options.interceptors...)

	serverOpts := []grpc.ServerOption{grpc.MaxRecvMsgSize(options.maxRecvMsgSize)}
	if len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	serverOpts = append(serverOpts, options.serverOptions...)

	grpcServer := grpc.NewServer(serverOpts...)
	if options.reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   grpcServer,
		lis:          lis,
		logger:       logger,
		healthServer: healthServer,
		errCh:        make(chan error, 1),
	}, nil
}

func listen(options *Options) (net.Listener, error) {
	if options.listener != nil {
		return options.listener, nil
	}
	if options.port < 1 || options.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", options.port)
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", options.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
	}
	return lis, nil
}

// RegisterServiceWithHealth registers a service and reports it SERVING
// under serviceName.
func (s *Server) RegisterServiceWithHealth(serviceName string, register func(r grpc.ServiceRegistrar)) {
	register(s.grpcServer)
	if serviceName == "" {
		return
	}
	s.healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("registered service with health check", zap.String("service", serviceName))
}

func (s *Server) SetServiceHealth(serviceName string, status healthpb.HealthCheckResponse_ServingStatus) {
	s.healthServer.SetServingStatus(serviceName, status)
	s.logger.Info("updated service health",
		zap.String("service", serviceName),
		zap.String("status", status.String()))
}

// Start serves in a goroutine. A serve failure other than a normal stop is
// delivered on Err.
func (s *Server) Start() {
	s.logger.Info("gRPC server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		err := s.grpcServer.Serve(s.lis)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed", zap.Error(err))
			s.errCh <- err
		}
	}()
}

// Err reports a server that stopped serving on its own.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown reports NOT_SERVING for every service, then stops gracefully,
// forcing a stop when ctx ends first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
