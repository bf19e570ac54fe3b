package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	dicegrpc "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/dice"
	grpcmeta "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/metadata"
	"github.com/louisbranch/dicetray/internal/services/feed"
	"github.com/louisbranch/dicetray/internal/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Config describes the server runtime.
type Config struct {
	// Addr is the gRPC listen address.
	Addr     string
	DBPath   string
	D100Mode notation.D100Mode
	// FeedAddr enables the websocket feed when set.
	FeedAddr string
	Logger   *log.Logger
}

// Server hosts the dicetray gRPC server.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *sqlite.Store
	feed       *feed.Server
	logger     *log.Logger
}

// New creates a configured server listening on cfg.Addr.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("gRPC address is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	opts := []diceservice.Option{
		diceservice.WithStore(store),
		diceservice.WithD100Mode(cfg.D100Mode),
		diceservice.WithLogger(logger),
	}
	var feedServer *feed.Server
	if strings.TrimSpace(cfg.FeedAddr) != "" {
		hub := feed.NewHub(feed.DefaultReplay, logger)
		feedServer, err = feed.NewServer(cfg.FeedAddr, hub)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, diceservice.WithPublisher(hub))
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(grpcmeta.WithAccessLog(logger))),
	)
	dicegrpc.RegisterDiceServiceServer(grpcServer, dicegrpc.NewDiceService(diceservice.NewService(opts...)))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(dicegrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		feed:       feedServer,
		logger:     logger,
	}, nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// FeedAddr returns the feed listener address, or "" when disabled.
func (s *Server) FeedAddr() string {
	if s == nil || s.feed == nil {
		return ""
	}
	return s.feed.Addr()
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	g, gctx := errgroup.WithContext(ctx)
	if s.feed != nil {
		g.Go(func() error {
			return s.feed.Serve(gctx)
		})
	}
	g.Go(func() error {
		return s.serveGRPC(gctx)
	})
	return g.Wait()
}

func (s *Server) serveGRPC(ctx context.Context) error {
	s.logger.Printf("dicetray server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Printf("close roll store: %v", err)
	}
}
