package mcp

import (
	"context"
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RemoteAddr != "" {
		t.Fatalf("expected local rolls by default, got %q", cfg.RemoteAddr)
	}
	if cfg.HTTPAddr != "localhost:8091" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.Locale != "en-US" {
		t.Fatalf("expected default locale en-US, got %q", cfg.Locale)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DICETRAY_REMOTE_ADDR", "env-dice")
	t.Setenv("DICETRAY_MCP_HTTP_ADDR", "env-http")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-remote", "flag-dice", "-transport", "http", "-locale", "pt-BR"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RemoteAddr != "flag-dice" {
		t.Fatalf("expected flag remote addr, got %q", cfg.RemoteAddr)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("expected locale pt-BR, got %q", cfg.Locale)
	}
}

func TestRunRejectsInvalidD100Mode(t *testing.T) {
	if err := Run(context.Background(), Config{D100Mode: -1}); err == nil {
		t.Fatal("expected invalid d100 mode error")
	}
}
