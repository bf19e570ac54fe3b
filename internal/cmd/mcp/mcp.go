// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"fmt"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	entrypoint "github.com/louisbranch/dicetray/internal/platform/cmd"
	mcpservice "github.com/louisbranch/dicetray/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	RemoteAddr string `env:"DICETRAY_REMOTE_ADDR"`
	DBPath     string `env:"DICETRAY_DB_PATH"        envDefault:"data/dicetray.db"`
	D100Mode   int    `env:"DICETRAY_D100_MODE"      envDefault:"1"`
	HTTPAddr   string `env:"DICETRAY_MCP_HTTP_ADDR"  envDefault:"localhost:8091"`
	Transport  string `env:"DICETRAY_MCP_TRANSPORT"  envDefault:"stdio"`
	Locale     string `env:"DICETRAY_LOCALE"         envDefault:"en-US"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.RemoteAddr, "remote", cfg.RemoteAddr, "dice gRPC server address (empty rolls locally)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "roll history database path for local rolls")
	fs.IntVar(&cfg.D100Mode, "d100-mode", cfg.D100Mode, "d100 mode for local rolls")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for tool error messages")
	if err := entrypoint.ParseFlags(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	mode := notation.D100Mode(cfg.D100Mode)
	if !mode.Valid() {
		return fmt.Errorf("d100 mode %d is invalid", cfg.D100Mode)
	}
	return entrypoint.Run(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return mcpservice.Run(ctx, mcpservice.Config{
			Transport: mcpservice.TransportKind(cfg.Transport),
			HTTPAddr:  cfg.HTTPAddr,
			GRPCAddr:  cfg.RemoteAddr,
			DBPath:    cfg.DBPath,
			D100Mode:  mode,
			Locale:    cfg.Locale,
		})
	})
}
