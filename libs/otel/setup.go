// Package otelx wires OpenTelemetry tracing for every salonbook service.
package otelx

import (
	"context"
	"strconv"
	"time"

	"github.com/salonbook/salonbook/libs/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string // host:port
	SampleRatio  float64
}

func ConfigFromEnv(serviceName string) Config {
	ratio, err := strconv.ParseFloat(config.String("OTEL_SAMPLING_RATIO", "1"), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		ratio = 1
	}
	return Config{
		Enabled:      config.Bool("OTEL_ENABLED", false),
		ServiceName:  serviceName,
		Environment:  config.String("APP_ENV", "local"),
		OTLPEndpoint: config.String("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		SampleRatio:  ratio,
	}
}

// Setup installs the W3C propagators and, when enabled, an OTLP exporter.
// The returned func flushes pending spans.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceNamespace("salonbook"),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func Tracer(name string) trace.Tracer {
	return otel.Tracer("salonbook/" + name)
}
