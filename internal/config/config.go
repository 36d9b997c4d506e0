// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// KV backends accepted by KV_BACKEND.
const (
	KVBackendSQLite   = "sqlite"
	KVBackendPostgres = "postgres"
	KVBackendMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// GRPCAddr is the address the health gRPC server listens on (e.g. :8090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	// AppVersion is the host short version string. Empty means unavailable ("0" is reported).
	AppVersion string `mapstructure:"APP_VERSION"`
	// AppBuildNumber is the host build identifier. Empty means unavailable ("0" is reported).
	AppBuildNumber string `mapstructure:"APP_BUILD_NUMBER"`
	// AppRelease marks a release build; non-release versions are reported with a "B-" prefix.
	AppRelease bool `mapstructure:"APP_RELEASE"`

	// KVBackend selects the persisted key-value store: sqlite, postgres or memory.
	KVBackend string `mapstructure:"KV_BACKEND"`
	// StateDBPath is the SQLite file used when KVBackend is sqlite.
	StateDBPath string `mapstructure:"STATE_DB_PATH"`
	// DatabaseURL is the Postgres DSN. Required when KVBackend is postgres; when set, events are also persisted.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// ProfileDBPath is the SQLite file holding profile history and prefs. Empty means an empty profile.
	ProfileDBPath string `mapstructure:"PROFILE_DB_PATH"`
	// DefaultSearchEngine is the short name of the profile's default search engine.
	DefaultSearchEngine string `mapstructure:"DEFAULT_SEARCH_ENGINE"`
	// DeviceModel overrides the detected device model identifier.
	DeviceModel string `mapstructure:"DEVICE_MODEL"`

	// EnvironmentEventWindow is the minimum interval between environment events (e.g. "1h").
	EnvironmentEventWindow string `mapstructure:"ENVIRONMENT_EVENT_WINDOW"`
	// WorkerCount is the number of background workers draining the utility queue.
	WorkerCount int `mapstructure:"WORKER_COUNT"`
	// WorkerQueueSize is the buffered capacity of the utility queue.
	WorkerQueueSize int `mapstructure:"WORKER_QUEUE_SIZE"`

	// ReachabilityTarget is the host:port dialed to decide network status.
	ReachabilityTarget string `mapstructure:"REACHABILITY_TARGET"`
	// ReachabilityTimeout is the dial timeout for a reachability probe (e.g. "3s").
	ReachabilityTimeout string `mapstructure:"REACHABILITY_TIMEOUT"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, events are also written to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default appstatus-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "")
	v.SetDefault("GRPC_ADDR", ":8090")
	v.SetDefault("APP_VERSION", "")
	v.SetDefault("APP_BUILD_NUMBER", "")
	v.SetDefault("APP_RELEASE", false)
	v.SetDefault("KV_BACKEND", KVBackendSQLite)
	v.SetDefault("STATE_DB_PATH", "./data/appstatus.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PROFILE_DB_PATH", "")
	v.SetDefault("DEFAULT_SEARCH_ENGINE", "")
	v.SetDefault("DEVICE_MODEL", "")
	v.SetDefault("ENVIRONMENT_EVENT_WINDOW", "1h")
	v.SetDefault("WORKER_COUNT", 1)
	v.SetDefault("WORKER_QUEUE_SIZE", 256)
	v.SetDefault("REACHABILITY_TARGET", "1.1.1.1:53")
	v.SetDefault("REACHABILITY_TIMEOUT", "3s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "appstatus-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "appstatus-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	cfg.KVBackend = strings.ToLower(strings.TrimSpace(cfg.KVBackend))
	switch cfg.KVBackend {
	case KVBackendSQLite:
		if cfg.StateDBPath == "" {
			return nil, errors.New("config: STATE_DB_PATH must be set when KV_BACKEND=sqlite")
		}
	case KVBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when KV_BACKEND=postgres")
		}
	case KVBackendMemory:
	default:
		return nil, errors.New("config: KV_BACKEND must be one of sqlite, postgres, memory")
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.WorkerQueueSize <= 0 {
		cfg.WorkerQueueSize = 256
	}

	return &cfg, nil
}

// EnvironmentWindow parses EnvironmentEventWindow as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) EnvironmentWindow() time.Duration {
	d, err := time.ParseDuration(c.EnvironmentEventWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ReachabilityTimeoutDuration parses ReachabilityTimeout. Returns 3s if unset or invalid.
func (c *Config) ReachabilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ReachabilityTimeout)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka export is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
