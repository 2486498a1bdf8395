package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/salonbook/salonbook/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerMetadataInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	}
	return grpc.NewServer(append(opts, extra...)...)
}

// UnaryServerLoggingInterceptor logs failed calls and turns panics into codes.Internal.
func UnaryServerLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("grpc panic", "method", info.FullMethod, "panic", rec)
				err = status.Error(codes.Internal, "internal error")
			}
			if err != nil {
				logger.Warn("grpc call failed",
					"method", info.FullMethod,
					"code", status.Code(err).String(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", httpx.RequestIDFromContext(ctx),
					"tenant_id", TenantFromContext(ctx),
				)
			}
		}()
		return handler(ctx, req)
	}
}

// Serve runs srv on lis until ctx is cancelled, then drains it.
func Serve(ctx context.Context, logger *slog.Logger, srv *grpc.Server, lis net.Listener) {
	go func() {
		logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server stopped", "err", err)
		}
	}()
	<-ctx.Done()
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		srv.Stop()
	}
}
