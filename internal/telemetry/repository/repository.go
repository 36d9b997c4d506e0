// Package repository persists telemetry envelopes.
package repository

import (
	"context"

	"appstatus/internal/telemetry/domain"
)

// Repository defines persistence for telemetry envelopes.
type Repository interface {
	Save(ctx context.Context, env *domain.Envelope) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.Envelope, error)
}

// Emitter adapts a Repository to telemetry.EventEmitter.
type Emitter struct {
	Repo Repository
}

// Emit saves env.
func (e Emitter) Emit(ctx context.Context, env *domain.Envelope) error {
	if e.Repo == nil || env == nil {
		return nil
	}
	return e.Repo.Save(ctx, env)
}
