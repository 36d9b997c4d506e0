package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"appstatus/internal/telemetry"
	"appstatus/internal/telemetry/domain"
)

// instrumentationScope names the OTel logger used for app telemetry records.
const instrumentationScope = "appstatus.telemetry"

// recordEmitter is the subset of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends envelopes as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationScope)}
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger directly.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Envelope) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the envelope to an OTel log record: payload JSON as body, envelope fields as attributes.
func (e *otelEmitter) Emit(ctx context.Context, env *domain.Envelope) error {
	if env == nil {
		return nil
	}
	payload, err := env.Payload()
	if err != nil {
		return err
	}
	rec := otellog.Record{}
	if !env.Timestamp.IsZero() {
		rec.SetTimestamp(env.Timestamp)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(string(payload)))
	rec.AddAttributes(otellog.Int64("seq", env.Seq))
	if env.Type != "" {
		rec.AddAttributes(otellog.String("event_type", string(env.Type)))
	}
	if env.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", env.SessionID))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
