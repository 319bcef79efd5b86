// Package telemetry configures the OpenTelemetry tracer provider used by the meadowlark
// binary.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
)

type TracerOption func(d *customTracer)

func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(d *customTracer) {
		d.endpoint = endpoint
	}
}

func WithServiceName(serviceName string) TracerOption {
	return func(d *customTracer) {
		d.serviceName = serviceName
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(d *customTracer) {
		d.samplingRatio = samplingRatio
	}
}

// WithExporter sends spans to exp instead of an OTLP collector.
func WithExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(d *customTracer) {
		d.exporter = exp
	}
}

type customTracer struct {
	endpoint    string
	serviceName string

	samplingRatio float64

	exporter sdktrace.SpanExporter
}

// MustNewTracerProvider builds a tracer provider and installs it as the global provider.
// Without an endpoint or exporter spans are sampled but not exported.
func MustNewTracerProvider(opts ...TracerOption) *sdktrace.TracerProvider {
	tracer := &customTracer{
		serviceName: build.ProjectName,
	}

	for _, opt := range opts {
		opt(tracer)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(tracer.serviceName),
			semconv.ServiceVersionKey.String(build.Version),
		))
	if err != nil {
		panic(err)
	}

	exp := tracer.exporter
	if exp == nil && tracer.endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(tracer.endpoint),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to establish a connection with the otlp exporter: %v", err))
		}
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tracer.samplingRatio))),
		sdktrace.WithResource(res),
	}
	if exp != nil {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp)))
	}
	tp := sdktrace.NewTracerProvider(providerOpts...)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	otel.SetTracerProvider(tp)

	return tp
}

func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
