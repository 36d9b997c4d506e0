// Package telemetry is the sink for app lifecycle events: it stamps each event with the run's
// session and a persisted sequence number and hands it to the configured emitters.
package telemetry

import (
	"context"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"appstatus/internal/kvstore"
	"appstatus/internal/telemetry/domain"
)

// SequenceKey is the kv store key holding the last checkpointed sequence number.
const SequenceKey = "TelemetrySeq"

// Sink accepts telemetry events. LogEvent never blocks on delivery.
type Sink interface {
	LogEvent(ctx context.Context, ev domain.Event)
	// StoreCurrentSequence checkpoints the sequence counter so the next run continues from it.
	StoreCurrentSequence(ctx context.Context)
}

// Logger implements Sink over an EventEmitter.
type Logger struct {
	emitter   EventEmitter
	kv        kvstore.Store
	sessionID string
	seq       atomic.Int64
	nowF      func() time.Time
	// deliver hands an envelope to the emitter; EmitAsync outside tests.
	deliver func(EventEmitter, *domain.Envelope)
	events  metric.Int64Counter
}

// NewLogger returns a Logger that resumes the sequence stored in kv (0 when absent or unreadable).
// emitter may be nil, in which case events are counted and dropped.
func NewLogger(ctx context.Context, emitter EventEmitter, kv kvstore.Store) *Logger {
	l := &Logger{
		emitter:   emitter,
		kv:        kv,
		sessionID: uuid.New().String(),
		nowF:      time.Now,
		deliver:   EmitAsync,
	}
	if kv != nil {
		if v, ok, err := kv.Get(ctx, SequenceKey); err != nil {
			log.Printf("telemetry: load sequence: %v", err)
		} else if ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				l.seq.Store(n)
			} else {
				log.Printf("telemetry: ignoring invalid stored sequence %q", v)
			}
		}
	}
	counter, err := otel.Meter("appstatus/telemetry").Int64Counter(
		"appstatus.telemetry.events",
		metric.WithDescription("Telemetry events handed to emitters."),
	)
	if err != nil {
		log.Printf("telemetry: create counter: %v", err)
	}
	l.events = counter
	return l
}

// SessionID returns the identifier stamped on every envelope of this run.
func (l *Logger) SessionID() string { return l.sessionID }

// Sequence returns the last assigned sequence number.
func (l *Logger) Sequence() int64 { return l.seq.Load() }

// LogEvent stamps ev and hands it to the emitter asynchronously.
func (l *Logger) LogEvent(ctx context.Context, ev domain.Event) {
	if ev == nil {
		return
	}
	env := domain.NewEnvelope(l.seq.Add(1), l.sessionID, l.nowF(), ev)
	if l.events != nil {
		l.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(env.Type))))
	}
	if l.emitter == nil {
		return
	}
	l.deliver(l.emitter, env)
}

// StoreCurrentSequence persists the current sequence number. Failures are logged.
func (l *Logger) StoreCurrentSequence(ctx context.Context) {
	if l.kv == nil {
		return
	}
	if err := l.kv.Set(ctx, SequenceKey, strconv.FormatInt(l.seq.Load(), 10)); err != nil {
		log.Printf("telemetry: store sequence: %v", err)
	}
}
