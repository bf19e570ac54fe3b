package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/louisbranch/dicetray/internal/platform/timeouts"
	"golang.org/x/sync/errgroup"
)

// Server exposes a Hub over HTTP.
type Server struct {
	ln   net.Listener
	http *http.Server
	hub  *Hub
}

// NewServer binds addr immediately so Addr is known before Serve runs.
func NewServer(addr string, hub *Hub) (*Server, error) {
	if hub == nil {
		return nil, errors.New("feed hub is required")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("feed listen %s: %w", addr, err)
	}
	return &Server{
		ln:  ln,
		hub: hub,
		http: &http.Server{
			Handler:           NewHandler(hub),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve handles connections until ctx ends, then shuts down gracefully
// within timeouts.Shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.hub.logger.Printf("feed listening at %s", s.Addr())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.http.Serve(s.ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve feed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return s.http.Close()
		}
		return nil
	})
	return g.Wait()
}
