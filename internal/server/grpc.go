package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"appstatus/internal/health"
	"appstatus/internal/server/interceptors"
)

// Deps holds optional service dependencies for the daemon's gRPC server.
type Deps struct {
	// Health backs grpc.health.v1.Health. If nil, the health service is not registered.
	Health *health.Reporter
	// SessionID is the telemetry session returned in the x-session-id response header.
	SessionID string
}

// healthCheckMethods are not logged by the request interceptor.
var healthCheckMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
}

// NewGRPCServer returns a server instrumented with otelgrpc and the daemon's interceptors,
// with all services registered.
func NewGRPCServer(deps Deps) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryUnary(),
			interceptors.SessionUnary(deps.SessionID),
			interceptors.LoggingUnary(healthCheckMethods),
		),
	)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the daemon's gRPC services with the given server.
//
//   - grpc.health.v1.Health → internal/health (lifecycle phase + store ping)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health.Server())
	}
}
