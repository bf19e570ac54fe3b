package otel_test

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/dicetray/internal/platform/otel"
)

func TestSetupFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "no endpoint"},
		{name: "explicitly disabled", endpoint: "http://localhost:4318", enabled: "false"},
		// 192.0.2.0/24 is reserved for documentation, so nothing is exported.
		{name: "exporting", endpoint: "http://192.0.2.1:4318"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DICETRAY_OTEL_ENDPOINT", tt.endpoint)
			t.Setenv("DICETRAY_OTEL_ENABLED", tt.enabled)

			shutdown, err := otel.Setup(context.Background(), "dicetray-test")
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown: %v", err)
			}
		})
	}
}

func TestSetupRejectsBadSampleRatio(t *testing.T) {
	t.Setenv("DICETRAY_OTEL_SAMPLE_RATIO", "most")
	if _, err := otel.Setup(context.Background(), "dicetray-test"); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestNoopShutdownIgnoresCanceledContext(t *testing.T) {
	shutdown, err := otel.SetupWithConfig(context.Background(), "dicetray-test", otel.Config{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestConfigActive(t *testing.T) {
	tests := []struct {
		name string
		cfg  otel.Config
		want bool
	}{
		{name: "empty", cfg: otel.Config{}, want: false},
		{name: "endpoint", cfg: otel.Config{Endpoint: "http://localhost:4318"}, want: true},
		{name: "disabled", cfg: otel.Config{Endpoint: "http://localhost:4318", Enabled: "FALSE"}, want: false},
		{name: "enabled without endpoint", cfg: otel.Config{Enabled: "true"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Active(); got != tt.want {
				t.Fatalf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSamplerClampsRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
		{ratio: 3, want: "AlwaysOnSampler"},
		{ratio: -1, want: "TraceIDRatioBased{0}"},
	}
	for _, tt := range tests {
		got := otel.Config{SampleRatio: tt.ratio}.Sampler().Description()
		if !strings.Contains(got, "root:"+tt.want) {
			t.Fatalf("Sampler(%v) = %q, want root %s", tt.ratio, got, tt.want)
		}
	}
}

func TestTracerWorksWithoutProvider(t *testing.T) {
	ctx, span := otel.Tracer().Start(context.Background(), "roll")
	defer span.End()
	if ctx == nil || span == nil {
		t.Fatal("expected a span")
	}
}
