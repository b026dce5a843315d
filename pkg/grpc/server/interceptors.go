package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs each unary call with its peer, duration and
// status. Client faults are logged at Warn, server faults at Error.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		clientAddr := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			clientAddr = p.Addr.String()
		}

		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("client_addr", clientAddr),
			zap.Duration("duration", time.Since(start)),
		}

		st := status.Convert(err)
		fields = append(fields, zap.String("status_code", st.Code().String()))

		switch st.Code() {
		case codes.OK:
			logger.Info("gRPC request completed", fields...)
		case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.Canceled:
			logger.Warn("gRPC request rejected", append(fields, zap.String("status_message", st.Message()))...)
		default:
			logger.Error("gRPC request failed", append(fields, zap.String("status_message", st.Message()), zap.Error(err))...)
		}

		return resp, err
	}
}

// RecoveryInterceptor converts a panicking handler into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"))
				err = status.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
