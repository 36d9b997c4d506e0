// Package health maps the coordinator's lifecycle phase and store connectivity onto the
// standard gRPC health service.
package health

import (
	"context"
	"log"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"appstatus/internal/lifecycle"
)

// LifecycleService is the health service name reflecting the coordinator phase.
const LifecycleService = "appstatus.Lifecycle"

// pingTimeout bounds the store ping done on each phase report.
const pingTimeout = 2 * time.Second

// Pinger checks a dependency (e.g. *kvstore.SQLiteStore, *sql.DB). Ping errors mark the daemon not serving.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter owns a grpc health server and updates it from lifecycle phases.
type Reporter struct {
	srv    *grpchealth.Server
	pinger Pinger
}

// NewReporter returns a Reporter whose services start NOT_SERVING. pinger may be nil.
func NewReporter(pinger Pinger) *Reporter {
	r := &Reporter{srv: grpchealth.NewServer(), pinger: pinger}
	r.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return r
}

// Server returns the health server to register with a gRPC server.
func (r *Reporter) Server() *grpchealth.Server { return r.srv }

// ReportPhase sets SERVING while the app runs (started through background) and the pinger
// succeeds, NOT_SERVING otherwise.
func (r *Reporter) ReportPhase(ctx context.Context, phase lifecycle.Phase) {
	status := healthpb.HealthCheckResponse_SERVING
	switch phase {
	case lifecycle.PhaseNotStarted, lifecycle.PhaseTerminated:
		status = healthpb.HealthCheckResponse_NOT_SERVING
	default:
		if r.pinger != nil {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := r.pinger.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Printf("health: store ping failed: %v", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
	}
	r.set(status)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (r *Reporter) Shutdown() { r.srv.Shutdown() }

func (r *Reporter) set(status healthpb.HealthCheckResponse_ServingStatus) {
	r.srv.SetServingStatus("", status)
	r.srv.SetServingStatus(LifecycleService, status)
}
