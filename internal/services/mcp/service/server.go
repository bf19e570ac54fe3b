package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	platformgrpc "github.com/louisbranch/dicetray/internal/platform/grpc"
	"github.com/louisbranch/dicetray/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicetray/internal/platform/timeouts"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	dicegrpc "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicetray/internal/services/mcp/domain"
	"github.com/louisbranch/dicetray/internal/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	serverName    = "dicetray-mcp"
	serverVersion = "0.1.0"
	// healthInterval is how often a remote backend is probed while serving.
	healthInterval = 30 * time.Second
)

// TransportKind selects how MCP messages reach the server.
type TransportKind string

const (
	// TransportStdio serves a single client over stdin and stdout.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves streamable HTTP sessions.
	TransportHTTP TransportKind = "http"
)

// Config describes the MCP runtime.
type Config struct {
	Transport TransportKind
	// HTTPAddr is the listen address for TransportHTTP.
	HTTPAddr string
	// GRPCAddr sends tool calls to a remote dice server when set.
	GRPCAddr string
	// DBPath is the local history database used without GRPCAddr.
	DBPath   string
	D100Mode notation.D100Mode
	Locale   string
}

// Server hosts the dice MCP tools.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
	closer    io.Closer
}

// NewServer registers the dice tools against backend. Tool errors are
// localized for locale.
func NewServer(backend domain.Backend, locale string) *Server {
	locale = catalog.Default().ResolveLocale(locale)
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, domain.RollNotationTool(), domain.RollNotationHandler(backend, locale))
	mcp.AddTool(mcpServer, domain.ParseNotationTool(), domain.ParseNotationHandler(locale))
	mcp.AddTool(mcpServer, domain.ListRollsTool(), domain.ListRollsHandler(backend, locale))
	return &Server{mcpServer: mcpServer}
}

// New creates a server from cfg, opening the local store or dialing the
// remote dice server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.GRPCAddr) != "" {
		conn, err := dialDiceGRPC(ctx, cfg.GRPCAddr)
		if err != nil {
			return nil, err
		}
		server := NewServer(dicegrpc.NewClient(conn, cfg.Locale), cfg.Locale)
		server.conn = conn
		server.closer = conn
		return server, nil
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	svc := diceservice.NewService(
		diceservice.WithStore(store),
		diceservice.WithD100Mode(cfg.D100Mode),
	)
	server := NewServer(diceservice.Local(svc), cfg.Locale)
	server.closer = store
	return server, nil
}

// Run is the MCP entrypoint and blocks until ctx ends or the client
// disconnects.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}

	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if server.conn != nil {
		healthCtx, healthCancel := context.WithCancel(ctx)
		defer healthCancel()
		go platformgrpc.MonitorHealth(healthCtx, server.conn, dicegrpc.ServiceName, healthInterval, reportHealth)
	}

	if cfg.Transport == TransportHTTP {
		return server.serveHTTP(ctx, cfg.HTTPAddr)
	}
	return server.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the store or gRPC connection held by the server.
func (s *Server) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	s.conn = nil
	return err
}

// serveWithTransport runs the MCP session on transport and closes the
// server once it ends.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if closeErr := s.Close(); closeErr != nil {
		if err == nil {
			return fmt.Errorf("close backend: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close backend: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// serveHTTP serves streamable HTTP sessions on addr until ctx ends.
func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	defer s.Close()
	if strings.TrimSpace(addr) == "" {
		addr = "localhost:8091"
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcpServer }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("MCP HTTP listening on %s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown MCP HTTP: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP HTTP: %w", err)
	}
}

// reportHealth logs remote dice server health changes. Calls keep
// failing on their own while the server is down.
func reportHealth(status grpc_health_v1.HealthCheckResponse_ServingStatus, err error) {
	if err != nil {
		log.Printf("dice gRPC health check failed: %v", err)
		return
	}
	log.Printf("dice gRPC health status: %s", status)
}

func dialDiceGRPC(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	conn, err := platformgrpc.Dial(ctx, addr, platformgrpc.DialOptions{
		Timeout: timeouts.GRPCDial,
		Service: dicegrpc.ServiceName,
		Logf: func(format string, args ...any) {
			log.Printf("dice %s", fmt.Sprintf(format, args...))
		},
	})
	if err != nil {
		var dialErr *platformgrpc.DialError
		if errors.As(err, &dialErr) && dialErr.Stage == platformgrpc.DialStageConnect {
			return nil, fmt.Errorf("connect to dice server at %s: %w", addr, dialErr.Err)
		}
		return nil, err
	}
	return conn, nil
}
