// Package cmd holds the startup plumbing shared by dicetray binaries:
// configuration loading, flag parsing and the telemetry-wrapped run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/dicetray/internal/platform/config"
	"github.com/louisbranch/dicetray/internal/platform/otel"
)

// Service names reported to telemetry.
const (
	ServiceServer = "dicetray-server"
	ServiceMCP    = "dicetray-mcp"
	ServiceCLI    = "dicetray"
)

const defaultShutdownTimeout = 5 * time.Second

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseFlags parses args into fs. Flags registered with the values loaded
// by ParseConfig override the environment.
func ParseFlags(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag set is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

type runConfig struct {
	shutdownTimeout time.Duration
	logger          *log.Logger
}

// Option tunes Run.
type Option func(*runConfig)

// WithShutdownTimeout bounds the telemetry flush after run returns.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger for telemetry shutdown failures.
func WithLogger(logger *log.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run sets up tracing for service, calls run and flushes spans afterwards.
// A run that stops because ctx was canceled returns nil.
func Run(ctx context.Context, service string, run func(context.Context) error, opts ...Option) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := runConfig{shutdownTimeout: defaultShutdownTimeout, logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			cfg.logger.Printf("%s: flush telemetry: %v", service, err)
		}
	}()

	err = run(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
