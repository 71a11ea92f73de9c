package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"meeting-chat/internal/observability"
)

// ServiceName is the health-checked service name.
const ServiceName = "meeting-chat.Broadcast"

// HealthServer exposes grpc.health.v1 so orchestrators can probe the broadcast node.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

// NewHealthServer builds a gRPC server with the health service registered.
func NewHealthServer(log zerolog.Logger) *HealthServer {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{server: srv, health: hs, log: log.With().Str("component", "grpc_health").Logger()}
}

// SetServing flips the reported status of ServiceName.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on addr and blocks until Stop.
func (s *HealthServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

func (s *HealthServer) ServeListener(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health server listening")
	return s.server.Serve(lis)
}

// Stop marks every service not serving and stops the server gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
