// appstatusd hosts the lifecycle coordinator as a long-running process: it classifies the run on
// start, emits usage and environment telemetry on lifecycle signals, and serves gRPC health.
//
// Signals: SIGUSR1 moves the app to the background (inactive, then background), SIGUSR2 brings it
// back to the foreground, SIGINT/SIGTERM terminate.
package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appstatus/internal/config"
	"appstatus/internal/db"
	"appstatus/internal/debounce"
	"appstatus/internal/device"
	"appstatus/internal/executor"
	"appstatus/internal/health"
	"appstatus/internal/kvstore"
	"appstatus/internal/lifecycle"
	"appstatus/internal/profile"
	"appstatus/internal/reachability"
	"appstatus/internal/server"
	"appstatus/internal/telemetry"
	telemetryotel "appstatus/internal/telemetry/otel"
	"appstatus/internal/telemetry/producer"
	"appstatus/internal/telemetry/repository"
	"appstatus/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    "appstatusd",
		ServiceVersion: cfg.AppVersion,
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var pg *sql.DB
	if cfg.DatabaseURL != "" {
		pg, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pg.Close()
	}

	kv, pinger, closeKV, err := openKVStore(cfg, pg)
	if err != nil {
		log.Fatalf("kv store: %v", err)
	}
	defer closeKV()

	emitters := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		defer kp.Close()
		emitters = append(emitters, kp)
		log.Printf("telemetry: kafka export to %s", cfg.TelemetryKafkaTopic)
	}
	if pg != nil {
		emitters = append(emitters, repository.Emitter{Repo: repository.NewPostgresRepository(pg)})
	}
	sink := telemetry.NewLogger(ctx, emitters, kv)

	prof, closeProfile, err := openProfile(cfg)
	if err != nil {
		log.Fatalf("profile: %v", err)
	}
	defer closeProfile()

	pool := executor.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)
	monitor := reachability.NewMonitor(reachability.TCPProber{
		Target:  cfg.ReachabilityTarget,
		Timeout: cfg.ReachabilityTimeoutDuration(),
	}, sink, reachability.DefaultInterval)

	coord := lifecycle.New(lifecycle.Deps{
		Versions: version.NewStore(version.StaticHostInfo{
			Version: cfg.AppVersion,
			Build:   cfg.AppBuildNumber,
			Release: cfg.AppRelease,
		}, kv),
		Sink:         sink,
		Executor:     pool,
		Debouncer:    debounce.New(map[string]time.Duration{debounce.ClassEnvironment: cfg.EnvironmentWindow()}),
		Reachability: monitor,
		Device:       device.NewHost(cfg.DeviceModel),
	})

	reporter := health.NewReporter(pinger)
	s := server.NewGRPCServer(server.Deps{Health: reporter, SessionID: sink.SessionID()})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	log.Printf("appstatusd: session %s, version %s", sink.SessionID(), coord.CurrentAppVersion())
	coord.OnAppStarted(ctx)
	coord.OnBecomeActive(ctx, prof)
	reporter.ReportPhase(ctx, coord.Phase())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2, os.Interrupt, syscall.SIGTERM)
	for coord.Phase() != lifecycle.PhaseTerminated {
		switch <-sigs {
		case syscall.SIGUSR1:
			coord.OnBecomeInactive(ctx)
			coord.OnEnterBackground(ctx)
		case syscall.SIGUSR2:
			coord.OnBecomeActive(ctx, prof)
		default:
			coord.OnWillTerminate(ctx)
		}
		reporter.ReportPhase(ctx, coord.Phase())
		log.Printf("appstatusd: phase %s", coord.Phase())
	}

	log.Println("shutting down...")
	reporter.Shutdown()
	s.GracefulStop()
	monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := pool.Close(shutdownCtx); err != nil {
		log.Printf("executor: drain: %v", err)
	}
	// Let in-flight async emits finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel: shutdown: %v", err)
	}
	log.Println("appstatusd stopped")
}

// openKVStore returns the configured kv store, a pinger for health checks and a close function.
func openKVStore(cfg *config.Config, pg *sql.DB) (kvstore.Store, health.Pinger, func(), error) {
	switch cfg.KVBackend {
	case config.KVBackendPostgres:
		s := kvstore.NewPostgresStore(pg)
		return s, s, func() {}, nil
	case config.KVBackendMemory:
		return kvstore.NewMemoryStore(), nil, func() {}, nil
	default:
		s, err := kvstore.NewSQLite(cfg.StateDBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() { _ = s.Close() }, nil
	}
}

// openProfile returns the SQLite profile when PROFILE_DB_PATH is set, else a static one.
func openProfile(cfg *config.Config) (profile.Provider, func(), error) {
	if cfg.ProfileDBPath == "" {
		return profile.Static{SearchEngine: cfg.DefaultSearchEngine}, func() {}, nil
	}
	p, err := profile.NewSQLiteProvider(cfg.ProfileDBPath, cfg.DefaultSearchEngine)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}
