// Package profile exposes the read-only user profile data included in environment snapshots:
// default search engine, browsing history size and age, and preferences.
package profile

import (
	"context"
	"time"
)

// Provider answers profile queries. Implementations must be safe for concurrent use.
type Provider interface {
	// DefaultSearchEngine returns the short name of the default search engine.
	DefaultSearchEngine(ctx context.Context) string
	// HistoryCount returns the number of history records.
	HistoryCount(ctx context.Context) (int, error)
	// OldestVisit returns the oldest recorded history visit; ok is false when history is empty.
	OldestVisit(ctx context.Context) (t time.Time, ok bool, err error)
	// Preferences returns the user's preferences. May be empty, never nil on success.
	Preferences(ctx context.Context) (map[string]any, error)
}

// Static is a Provider with fixed answers. The zero value is an empty profile.
type Static struct {
	SearchEngine string
	Count        int
	Oldest       time.Time
	Prefs        map[string]any
}

// DefaultSearchEngine implements Provider.
func (s Static) DefaultSearchEngine(ctx context.Context) string { return s.SearchEngine }

// HistoryCount implements Provider.
func (s Static) HistoryCount(ctx context.Context) (int, error) { return s.Count, nil }

// OldestVisit implements Provider.
func (s Static) OldestVisit(ctx context.Context) (time.Time, bool, error) {
	return s.Oldest, !s.Oldest.IsZero(), nil
}

// Preferences implements Provider. The returned map is a copy.
func (s Static) Preferences(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(s.Prefs))
	for k, v := range s.Prefs {
		out[k] = v
	}
	return out, nil
}

// DaysSince returns the number of whole days between then and now, never negative.
func DaysSince(then, now time.Time) int {
	d := now.Sub(then)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
