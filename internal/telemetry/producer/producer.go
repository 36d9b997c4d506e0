// Package producer defines the interface for shipping telemetry envelopes to a broker (e.g. Kafka).
package producer

import (
	"context"

	"appstatus/internal/telemetry/domain"
)

// Producer emits telemetry envelopes. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single envelope. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, env *domain.Envelope) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
