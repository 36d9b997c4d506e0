// events prints the stored telemetry envelopes of one session as JSON lines, ordered by sequence.
// Requires DATABASE_URL and applied migrations; use go run ./cmd/events -session <id>.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"appstatus/internal/config"
	"appstatus/internal/db"
	"appstatus/internal/telemetry/domain"
	"appstatus/internal/telemetry/repository"
)

const queryTimeout = 30 * time.Second

// sessionLister is the subset of repository.Repository used by printSession.
type sessionLister interface {
	ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.Envelope, error)
}

func main() {
	session := flag.String("session", "", "Session ID to list")
	limit := flag.Int("limit", 100, "Maximum number of envelopes")
	offset := flag.Int("offset", 0, "Number of envelopes to skip")
	flag.Parse()

	if *session == "" {
		fmt.Fprintln(os.Stderr, "-session is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	repo := repository.NewPostgresRepository(conn)
	if _, err := printSession(ctx, repo, os.Stdout, *session, int32(*limit), int32(*offset)); err != nil {
		fmt.Fprintln(os.Stderr, "events:", err)
		os.Exit(1)
	}
}

// printSession writes one JSON line per envelope of sessionID and returns how many were written.
func printSession(ctx context.Context, repo sessionLister, w io.Writer, sessionID string, limit, offset int32) (int, error) {
	if limit <= 0 || offset < 0 {
		return 0, errors.New("limit must be positive and offset non-negative")
	}
	envs, err := repo.ListBySession(ctx, sessionID, limit, offset)
	if err != nil {
		return 0, fmt.Errorf("list session %s: %w", sessionID, err)
	}
	enc := json.NewEncoder(w)
	for i, env := range envs {
		if err := enc.Encode(env); err != nil {
			return i, fmt.Errorf("encode seq %d: %w", env.Seq, err)
		}
	}
	return len(envs), nil
}
