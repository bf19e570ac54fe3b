// Package server parses server command flags and starts the dice gRPC runtime.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	entrypoint "github.com/louisbranch/dicetray/internal/platform/cmd"
	dicesrv "github.com/louisbranch/dicetray/internal/services/dice/app"
)

// Config holds server command configuration.
type Config struct {
	Addr     string `env:"DICETRAY_GRPC_ADDR" envDefault:"localhost:8090"`
	DBPath   string `env:"DICETRAY_DB_PATH"   envDefault:"data/dicetray.db"`
	D100Mode int    `env:"DICETRAY_D100_MODE" envDefault:"1"`
	FeedAddr string `env:"DICETRAY_FEED_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "gRPC listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "roll history database path")
	fs.IntVar(&cfg.D100Mode, "d100-mode", cfg.D100Mode, "d100 mode: 0 reads 00 as 0, 1 reads 00 as 100")
	fs.StringVar(&cfg.FeedAddr, "feed-addr", cfg.FeedAddr, "websocket feed listen address (empty disables the feed)")
	if err := entrypoint.ParseFlags(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the dice gRPC service.
func Run(ctx context.Context, cfg Config) error {
	mode := notation.D100Mode(cfg.D100Mode)
	if !mode.Valid() {
		return fmt.Errorf("d100 mode %d is invalid", cfg.D100Mode)
	}
	return entrypoint.Run(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return dicesrv.Run(ctx, dicesrv.Config{
			Addr:     cfg.Addr,
			DBPath:   cfg.DBPath,
			D100Mode: mode,
			FeedAddr: cfg.FeedAddr,
			Logger:   log.New(os.Stderr, "", log.LstdFlags),
		})
	})
}
