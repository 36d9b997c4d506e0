package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.GRPCAddr != ":8090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8090")
	}
	if cfg.KVBackend != KVBackendSQLite {
		t.Errorf("KVBackend = %q, want %q", cfg.KVBackend, KVBackendSQLite)
	}
	if cfg.StateDBPath != "./data/appstatus.db" {
		t.Errorf("StateDBPath = %q, want default", cfg.StateDBPath)
	}
	if cfg.TelemetryKafkaTopic != "appstatus-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
	if cfg.KafkaGroupID != "appstatus-telemetry-worker" {
		t.Errorf("KafkaGroupID = %q, want default", cfg.KafkaGroupID)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("WorkerCount = %d, want 1", cfg.WorkerCount)
	}
	if cfg.WorkerQueueSize != 256 {
		t.Errorf("WorkerQueueSize = %d, want 256", cfg.WorkerQueueSize)
	}
	if cfg.AppRelease {
		t.Error("AppRelease should default to false")
	}
	if cfg.EnvironmentWindow() != time.Hour {
		t.Errorf("EnvironmentWindow = %v, want 1h", cfg.EnvironmentWindow())
	}
	if cfg.ReachabilityTimeoutDuration() != 3*time.Second {
		t.Errorf("ReachabilityTimeoutDuration = %v, want 3s", cfg.ReachabilityTimeoutDuration())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_VERSION", "2.0")
	os.Setenv("APP_BUILD_NUMBER", "5")
	os.Setenv("APP_RELEASE", "true")
	os.Setenv("WORKER_COUNT", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppVersion != "2.0" {
		t.Errorf("AppVersion = %q, want %q", cfg.AppVersion, "2.0")
	}
	if cfg.AppBuildNumber != "5" {
		t.Errorf("AppBuildNumber = %q, want %q", cfg.AppBuildNumber, "5")
	}
	if !cfg.AppRelease {
		t.Error("AppRelease should be true")
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
}

func TestLoad_KVBackend(t *testing.T) {
	testCases := []struct {
		name    string
		backend string
		dsn     string
		want    string
		err     bool
	}{
		{"sqlite", "sqlite", "", KVBackendSQLite, false},
		{"memory", "memory", "", KVBackendMemory, false},
		{"mixed case", " Memory ", "", KVBackendMemory, false},
		{"postgres with dsn", "postgres", "postgres://u:p@localhost/db", KVBackendPostgres, false},
		{"postgres without dsn", "postgres", "", "", true},
		{"unknown", "redis", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("KV_BACKEND", tc.backend)
			if tc.dsn != "" {
				os.Setenv("DATABASE_URL", tc.dsn)
			}

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.KVBackend != tc.want {
				t.Errorf("KVBackend = %q, want %q", cfg.KVBackend, tc.want)
			}
		})
	}
}

func TestLoad_WorkerSettingsFallback(t *testing.T) {
	os.Clearenv()
	os.Setenv("WORKER_COUNT", "0")
	os.Setenv("WORKER_QUEUE_SIZE", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("WorkerCount = %d, want 1", cfg.WorkerCount)
	}
	if cfg.WorkerQueueSize != 256 {
		t.Errorf("WorkerQueueSize = %d, want 256", cfg.WorkerQueueSize)
	}
}

func TestEnvironmentWindow(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"2h", 2 * time.Hour},
		{"invalid", time.Hour},
		{"0", time.Hour},
		{"-5m", time.Hour},
	}
	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			cfg := &Config{EnvironmentEventWindow: tc.value}
			if got := cfg.EnvironmentWindow(); got != tc.want {
				t.Errorf("EnvironmentWindow = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReachabilityTimeoutDuration_Invalid(t *testing.T) {
	cfg := &Config{ReachabilityTimeout: "soon"}
	if got := cfg.ReachabilityTimeoutDuration(); got != 3*time.Second {
		t.Errorf("ReachabilityTimeoutDuration = %v, want 3s", got)
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	var nilCfg *Config
	if got := nilCfg.TelemetryKafkaBrokersList(); got != nil {
		t.Errorf("nil config brokers = %v, want nil", got)
	}
	cfg := &Config{TelemetryKafkaBrokers: " a:9092, ,b:9092 "}
	got := cfg.TelemetryKafkaBrokersList()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("brokers = %v, want [a:9092 b:9092]", got)
	}
}
