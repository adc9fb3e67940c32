// Package health serves the standard gRPC health protocol for the backing
// stores. Each named check is probed on an interval and reported as its own
// service; the empty service name is SERVING only while every check passes.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Check func(ctx context.Context) error

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checks     map[string]Check
	interval   time.Duration
	log        *slog.Logger
}

func NewServer(checks map[string]Check, interval time.Duration, log *slog.Logger) *Server {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	for name := range checks {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_UNKNOWN)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		checks:     checks,
		interval:   interval,
		log:        log,
	}
}

// Probe runs every check once and updates the reported statuses.
func (s *Server) Probe(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.WarnContext(ctx, "health check failed", "check", name, "error", err)
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// Run probes until ctx is done. A non-positive interval probes once.
func (s *Server) Run(ctx context.Context) {
	s.Probe(ctx)
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop reports NOT_SERVING to watchers and drains the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
