package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"appstatus/internal/telemetry/domain"
)

type mockLister struct {
	envs []*domain.Envelope
	err  error

	gotSession string
	gotLimit   int32
	gotOffset  int32
}

func (m *mockLister) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.Envelope, error) {
	m.gotSession, m.gotLimit, m.gotOffset = sessionID, limit, offset
	return m.envs, m.err
}

func TestPrintSession_WritesJSONLines(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockLister{envs: []*domain.Envelope{
		domain.NewEnvelope(1, "s-1", ts, domain.LifeCycle{Action: domain.ActionInstall, Version: "B-2.0 (5)"}),
		domain.NewEnvelope(2, "s-1", ts, domain.ApplicationUsage{Action: domain.ActionActive, Network: "online"}),
	}}
	var buf bytes.Buffer
	n, err := printSession(context.Background(), repo, &buf, "s-1", 10, 5)
	if err != nil {
		t.Fatalf("printSession: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if repo.gotSession != "s-1" || repo.gotLimit != 10 || repo.gotOffset != 5 {
		t.Errorf("ListBySession args = (%q, %d, %d), want (s-1, 10, 5)", repo.gotSession, repo.gotLimit, repo.gotOffset)
	}

	sc := bufio.NewScanner(&buf)
	var seqs []int64
	for sc.Scan() {
		var line struct {
			Seq       int64            `json:"seq"`
			SessionID string           `json:"session_id"`
			Type      domain.EventType `json:"type"`
		}
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		if line.SessionID != "s-1" {
			t.Errorf("session_id = %q, want s-1", line.SessionID)
		}
		seqs = append(seqs, line.Seq)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Errorf("seqs = %v, want [1 2]", seqs)
	}
}

func TestPrintSession_Errors(t *testing.T) {
	testCases := []struct {
		name          string
		repo          *mockLister
		limit, offset int32
	}{
		{"zero limit", &mockLister{}, 0, 0},
		{"negative offset", &mockLister{}, 10, -1},
		{"repository error", &mockLister{err: errors.New("db down")}, 10, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := printSession(context.Background(), tc.repo, &buf, "s-1", tc.limit, tc.offset)
			if err == nil {
				t.Fatal("expected error")
			}
			if n != 0 || buf.Len() != 0 {
				t.Errorf("wrote %d envelopes (%d bytes) on error", n, buf.Len())
			}
		})
	}
}

func TestPrintSession_EmptySession(t *testing.T) {
	var buf bytes.Buffer
	n, err := printSession(context.Background(), &mockLister{}, &buf, "none", 10, 0)
	if err != nil || n != 0 || buf.Len() != 0 {
		t.Errorf("printSession = (%d, %v), output %q; want (0, nil), empty", n, err, buf.String())
	}
}
