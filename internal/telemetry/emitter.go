package telemetry

import (
	"context"
	"errors"

	"appstatus/internal/telemetry/domain"
)

// EventEmitter delivers telemetry envelopes (e.g. to OTel Logs, Kafka, Postgres). Best-effort;
// callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, env *domain.Envelope) error
}

// MultiEmitter fans an envelope out to every emitter, continuing past failures.
type MultiEmitter []EventEmitter

// Emit sends env to each non-nil emitter and returns the joined errors.
func (m MultiEmitter) Emit(ctx context.Context, env *domain.Envelope) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
