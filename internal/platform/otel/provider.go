// Package otel configures OpenTelemetry tracing for dicetray processes.
//
// Tracing is opt-in: nothing is exported unless DICETRAY_OTEL_ENDPOINT names
// an OTLP/HTTP collector, and DICETRAY_OTEL_ENABLED=false turns it off
// again without unsetting the endpoint.
package otel

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/louisbranch/dicetray/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by dicetray packages.
const InstrumentationName = "github.com/louisbranch/dicetray"

// Config holds the tracing environment.
type Config struct {
	Endpoint string `env:"DICETRAY_OTEL_ENDPOINT"`
	Enabled  string `env:"DICETRAY_OTEL_ENABLED"`
	// SampleRatio is the fraction of root spans kept, clamped to [0, 1].
	SampleRatio float64 `env:"DICETRAY_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether spans should be exported.
func (c Config) Active() bool {
	if strings.EqualFold(strings.TrimSpace(c.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(c.Endpoint) != ""
}

// Sampler keeps SampleRatio of new traces and follows the parent decision
// for the rest.
func (c Config) Sampler() sdktrace.Sampler {
	ratio := min(max(c.SampleRatio, 0), 1)
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Setup reads Config from the environment and installs a global tracer
// provider for service. The returned function flushes pending spans; it is
// a no-op when tracing is inactive.
func Setup(ctx context.Context, service string) (func(context.Context) error, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	return SetupWithConfig(ctx, service, cfg)
}

// SetupWithConfig is Setup with an explicit configuration.
func SetupWithConfig(ctx context.Context, service string, cfg Config) (func(context.Context) error, error) {
	if !cfg.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(service),
		semconv.ServiceVersion(buildVersion()),
	))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// Tracer returns the dicetray tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

func noop(context.Context) error { return nil }
