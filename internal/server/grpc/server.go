// Package grpc serves the standard gRPC health checking protocol for the
// sync service. The backup store's reachability drives the serving status.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/usersync/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceBackupStore is the health service name reporting the backup store.
const ServiceBackupStore = "usersync.BackupStore"

type HealthChecker interface {
	CheckConnection(ctx context.Context) bool
}

type GRPCServer struct {
	address  string
	checker  HealthChecker
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, checker HealthChecker, interval time.Duration) *GRPCServer {
	return &GRPCServer{
		address:  a,
		checker:  checker,
		interval: interval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceBackupStore, healthpb.HealthCheckResponse_NOT_SERVING)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

// watch polls the backup store and publishes its status.
func (s *GRPCServer) watch(ctx context.Context) {
	last := healthpb.HealthCheckResponse_UNKNOWN

	check := func() {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if s.checker.CheckConnection(ctx) {
			st = healthpb.HealthCheckResponse_SERVING
		}
		if ctx.Err() != nil {
			return
		}
		if st != last {
			s.logger.Info(ctx, "health status changed", "service", ServiceBackupStore, "status", st.String())
			last = st
		}
		s.health.SetServingStatus("", st)
		s.health.SetServingStatus(ServiceBackupStore, st)
	}

	check()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
