package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/salonbook/salonbook/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	RequestIDKey = "x-request-id"
	TenantIDKey  = "x-tenant-id"
)

type tenantKey struct{}

// WithTenant marks ctx with the tenant a call is made for. The tenant only
// travels as metadata for logging; authorization stays with the request body.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey{}).(string)
	return v
}

// UnaryClientMetadataInterceptor forwards the HTTP request id and the tenant
// so both sides of a booking-service to tenant-service call log the same ids.
func UnaryClientMetadataInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var kv []string
		if id := httpx.RequestIDFromContext(ctx); id != "" {
			kv = append(kv, RequestIDKey, id)
		}
		if tenant := TenantFromContext(ctx); tenant != "" {
			kv = append(kv, TenantIDKey, tenant)
		}
		if len(kv) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, kv...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerMetadataInterceptor restores the ids, minting a request id when
// the caller sent none, and echoes the request id in the response header.
func UnaryServerMetadataInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		id := first(md, RequestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))
		ctx = httpx.ContextWithRequestID(ctx, id)
		ctx = WithTenant(ctx, first(md, TenantIDKey))
		return handler(ctx, req)
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
