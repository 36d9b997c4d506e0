package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"appstatus/internal/telemetry/domain"
)

// PostgresRepository stores envelopes in the telemetry_events table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save persists the envelope.
func (r *PostgresRepository) Save(ctx context.Context, env *domain.Envelope) error {
	payload, err := env.Payload()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	createdAt := env.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO telemetry_events (session_id, seq, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		env.SessionID, env.Seq, string(env.Type), string(payload), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}

// ListBySession returns a session's envelopes ordered by sequence, paginated by limit and offset.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, seq, event_type, payload, created_at
		FROM telemetry_events
		WHERE session_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Envelope
	for rows.Next() {
		var (
			env       domain.Envelope
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&env.SessionID, &env.Seq, &eventType, &payload, &env.Timestamp); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		env.Type = domain.EventType(eventType)
		ev, err := domain.DecodeEvent(env.Type, payload)
		if err != nil {
			return nil, err
		}
		env.Event = ev
		out = append(out, &env)
	}
	return out, rows.Err()
}
