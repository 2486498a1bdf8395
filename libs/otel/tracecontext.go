package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceHeaders is the W3C trace context stored next to an outbox row so the
// publisher can continue the trace of the request that wrote it.
type TraceHeaders struct {
	Traceparent string
	Tracestate  string
}

func CaptureTrace(ctx context.Context) TraceHeaders {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceHeaders{Traceparent: carrier.Get("traceparent"), Tracestate: carrier.Get("tracestate")}
}

// Context returns ctx carrying h, or ctx itself when h is empty.
func (h TraceHeaders) Context(ctx context.Context) context.Context {
	if h.Traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": h.Traceparent}
	if h.Tracestate != "" {
		carrier["tracestate"] = h.Tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
