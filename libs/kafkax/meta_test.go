package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestEventMetaHeadersRoundTrip(t *testing.T) {
	meta := EventMeta{EventID: "evt-1", EventType: "booking.appointment.created.v1", TenantID: "t-1"}
	msg := kafka.Message{Topic: "ignored", Key: []byte("k"), Headers: meta.Headers()}

	assert.Equal(t, meta, ExtractEventMeta(msg))
}

func TestExtractEventMetaFallbacks(t *testing.T) {
	msg := kafka.Message{Topic: "booking.appointment.deleted.v1", Key: []byte("appt-7")}

	got := ExtractEventMeta(msg)
	assert.Equal(t, "appt-7", got.EventID)
	assert.Equal(t, "booking.appointment.deleted.v1", got.EventType)
	assert.Empty(t, got.TenantID)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, EventMeta{EventID: "e"}.Headers())
	require.NotEmpty(t, HeaderValue(headers, "traceparent"))

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	assert.Equal(t, traceID, trace.SpanContextFromContext(out).TraceID())
}
