package grpcx

import (
	"context"
	"testing"

	"github.com/salonbook/salonbook/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

func TestJSONCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	if codec == nil {
		t.Fatal("json codec not registered")
	}

	type msg struct {
		TenantID string `json:"tenant_id"`
	}
	b, err := codec.Marshal(msg{TenantID: "t-1"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out msg
	if err := codec.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.TenantID != "t-1" {
		t.Fatalf("got %q", out.TenantID)
	}
}

func TestServerMetadataInterceptorRestoresIDs(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDKey, "req-42", TenantIDKey, "t-1"))

	var seenRequest, seenTenant string
	_, err := UnaryServerMetadataInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, func(ctx context.Context, _ any) (any, error) {
		seenRequest = httpx.RequestIDFromContext(ctx)
		seenTenant = TenantFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
	if seenRequest != "req-42" || seenTenant != "t-1" {
		t.Fatalf("unexpected ids: request=%q tenant=%q", seenRequest, seenTenant)
	}
}

func TestServerMetadataInterceptorMintsRequestID(t *testing.T) {
	var seen string
	_, _ = UnaryServerMetadataInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, func(ctx context.Context, _ any) (any, error) {
		seen = httpx.RequestIDFromContext(ctx)
		return nil, nil
	})
	if seen == "" {
		t.Fatal("expected a minted request id")
	}
}

func TestClientMetadataInterceptorAppendsMetadata(t *testing.T) {
	ctx := WithTenant(httpx.ContextWithRequestID(context.Background(), "req-7"), "t-9")

	err := UnaryClientMetadataInterceptor()(ctx, "/x/y", nil, nil, nil, func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		if got := md.Get(RequestIDKey); len(got) != 1 || got[0] != "req-7" {
			t.Fatalf("unexpected request id metadata: %v", md)
		}
		if got := md.Get(TenantIDKey); len(got) != 1 || got[0] != "t-9" {
			t.Fatalf("unexpected tenant metadata: %v", md)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
}
