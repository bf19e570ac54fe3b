// Package main provides the dicetray command-line tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/dicetray/internal/cmd/cli"
	"github.com/louisbranch/dicetray/internal/platform/config"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
