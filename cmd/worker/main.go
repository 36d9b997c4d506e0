// Worker consumes telemetry envelopes from Kafka and pushes them to Loki, labelled by event type
// and session. Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
// KV_BACKEND=memory avoids creating the daemon's state database.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"appstatus/internal/config"
	"appstatus/internal/telemetry/loki"
	telemetryotel "appstatus/internal/telemetry/otel"
)

// pushTimeout bounds a single Loki push.
const pushTimeout = 10 * time.Second

// messageReader is the subset of *kafka.Reader used by consume.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// envelopePusher is the subset of *loki.Client used by consume.
type envelopePusher interface {
	PushEnvelopeJSON(ctx context.Context, rawJSON []byte) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	providers, err := telemetryotel.NewProviders(context.Background(), telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "appstatus-worker",
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel: shutdown: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.TelemetryKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)
	httpClient := &http.Client{
		Timeout:   pushTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	n := consume(ctx, reader, loki.NewClient(cfg.LokiURL, httpClient))
	log.Printf("worker: stopped after %d envelopes", n)
}

// consume forwards messages until ctx is done and returns how many were pushed successfully.
// Read and push failures are logged; a failed push is not retried.
func consume(ctx context.Context, r messageReader, p envelopePusher) int {
	pushed := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return pushed
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := p.PushEnvelopeJSON(pushCtx, msg.Value); err != nil {
			log.Printf("worker: loki push failed (offset %d): %v", msg.Offset, err)
		} else {
			pushed++
		}
		cancel()
	}
}
