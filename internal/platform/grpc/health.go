package grpc

import (
	"context"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCallTimeout = time.Second
	minHealthBackoff  = 100 * time.Millisecond
	maxHealthBackoff  = time.Second
)

// WaitForHealth blocks until the health check for service reports SERVING
// or ctx ends. Checks back off from 100ms up to one second.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	client := grpc_health_v1.NewHealthClient(conn)
	backoff := minHealthBackoff
	for {
		status, err := check(ctx, client, service)
		if err == nil && status == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for gRPC health: %v", err)
			} else {
				logf("waiting for gRPC health: status %s", status)
			}
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			if err != nil {
				return fmt.Errorf("wait for gRPC health: %w (last error: %v)", ctx.Err(), err)
			}
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-timer.C:
		}
		backoff = min(backoff*2, maxHealthBackoff)
	}
}

// MonitorHealth checks service every interval until ctx ends and calls
// report when the serving status changes. A failed check reports
// UNKNOWN with its error.
func MonitorHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, interval time.Duration, report func(grpc_health_v1.HealthCheckResponse_ServingStatus, error)) {
	if conn == nil || report == nil || interval <= 0 {
		return
	}
	client := grpc_health_v1.NewHealthClient(conn)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := grpc_health_v1.HealthCheckResponse_SERVING
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		status, err := check(ctx, client, service)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			status = grpc_health_v1.HealthCheckResponse_UNKNOWN
		}
		if status != last || err != nil {
			report(status, err)
		}
		last = status
	}
}

func check(ctx context.Context, client grpc_health_v1.HealthClient, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, healthCallTimeout)
	defer cancel()
	response, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return response.GetStatus(), nil
}
