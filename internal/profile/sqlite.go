package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteProvider reads history and preferences from a local SQLite profile database.
type SQLiteProvider struct {
	db           *sql.DB
	searchEngine string
}

// NewSQLiteProvider opens (creating if needed) the profile database at dbPath.
// searchEngine is reported as the default search engine.
func NewSQLiteProvider(dbPath, searchEngine string) (*SQLiteProvider, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &SQLiteProvider{db: db, searchEngine: searchEngine}
	if err := p.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return p, nil
}

func (p *SQLiteProvider) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		visited_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_visited ON history(visited_at);

	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL
	);
	`
	if _, err := p.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DefaultSearchEngine implements Provider.
func (p *SQLiteProvider) DefaultSearchEngine(ctx context.Context) string {
	return p.searchEngine
}

// HistoryCount implements Provider.
func (p *SQLiteProvider) HistoryCount(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// OldestVisit implements Provider.
func (p *SQLiteProvider) OldestVisit(ctx context.Context) (time.Time, bool, error) {
	var oldest sql.NullInt64
	if err := p.db.QueryRowContext(ctx, `SELECT MIN(visited_at) FROM history`).Scan(&oldest); err != nil {
		return time.Time{}, false, fmt.Errorf("oldest visit: %w", err)
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(oldest.Int64, 0).UTC(), true, nil
}

// Preferences implements Provider. Values that are not valid JSON are returned as raw strings.
func (p *SQLiteProvider) Preferences(ctx context.Context) (map[string]any, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value_json FROM prefs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list prefs: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		prefs[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list prefs: %w", err)
	}
	return prefs, nil
}

// AddVisit records a history visit.
func (p *SQLiteProvider) AddVisit(ctx context.Context, url string, at time.Time) error {
	if _, err := p.db.ExecContext(ctx, `INSERT INTO history (url, visited_at) VALUES (?, ?)`, url, at.Unix()); err != nil {
		return fmt.Errorf("add visit: %w", err)
	}
	return nil
}

// SetPreference stores value (JSON-encoded) under key.
func (p *SQLiteProvider) SetPreference(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode pref %q: %w", key, err)
	}
	query := `
	INSERT INTO prefs (key, value_json) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`
	if _, err := p.db.ExecContext(ctx, query, key, string(raw)); err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}
