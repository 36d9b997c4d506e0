package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"appstatus/internal/debounce"
	"appstatus/internal/executor"
	"appstatus/internal/profile"
	"appstatus/internal/telemetry/domain"
)

type failingProfile struct{}

func (failingProfile) DefaultSearchEngine(ctx context.Context) string { return "DuckDuckGo" }
func (failingProfile) HistoryCount(ctx context.Context) (int, error) {
	return 0, errors.New("history locked")
}
func (failingProfile) OldestVisit(ctx context.Context) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("history locked")
}
func (failingProfile) Preferences(ctx context.Context) (map[string]any, error) {
	return nil, errors.New("prefs locked")
}

func newReporter(sink *mockSink) *EnvironmentReporter {
	d := debounce.New(map[string]time.Duration{debounce.ClassEnvironment: debounce.DefaultEnvironmentWindow})
	return NewEnvironmentReporter(d, sink, executor.Inline{}, mockDevice{}, func() string { return "1.0 (1)" })
}

func TestReportIfDue_Window(t *testing.T) {
	sink := &mockSink{}
	r := newReporter(sink)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if !r.ReportIfDue(ctx, profile.Static{}, t0) {
		t.Error("first report should fire")
	}
	if r.ReportIfDue(ctx, profile.Static{}, t0.Add(59*time.Minute)) {
		t.Error("report within window should not fire")
	}
	if n := len(sink.ofType(domain.TypeEnvironment)); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
	if !r.ReportIfDue(ctx, profile.Static{}, t0.Add(time.Hour)) {
		t.Error("report after window should fire")
	}
	if n := len(sink.ofType(domain.TypeEnvironment)); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}

func TestReportIfDue_SuppressedLeavesState(t *testing.T) {
	sink := &mockSink{}
	r := newReporter(sink)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r.ReportIfDue(ctx, nil, t0)
	r.ReportIfDue(ctx, nil, t0.Add(30*time.Minute))
	last, ok := r.debouncer.LastFired(debounce.ClassEnvironment)
	if !ok || !last.Equal(t0) {
		t.Errorf("last fired = %v, %v; want %v", last, ok, t0)
	}
	// Measured from the first fire, not the suppressed call.
	if !r.ReportIfDue(ctx, nil, t0.Add(time.Hour)) {
		t.Error("report one window after the first fire should fire")
	}
}

func TestReportIfDue_NoHistory(t *testing.T) {
	sink := &mockSink{}
	r := newReporter(sink)
	r.ReportIfDue(context.Background(), profile.Static{SearchEngine: "Bing"}, time.Now())

	env := sink.ofType(domain.TypeEnvironment)[0].(domain.Environment)
	if env.HistoryDays != 0 || env.HistoryURLs != 0 {
		t.Errorf("env = %+v, want zero history", env)
	}
	if env.DefaultSearchEngine != "Bing" || env.Version != "1.0 (1)" || env.Language != "de-AT" {
		t.Errorf("env = %+v", env)
	}
	if env.Prefs == nil {
		t.Error("prefs should be an empty map, not nil")
	}
}

func TestReportIfDue_ProfileErrorsDegrade(t *testing.T) {
	sink := &mockSink{}
	r := newReporter(sink)
	r.ReportIfDue(context.Background(), failingProfile{}, time.Now())

	envs := sink.ofType(domain.TypeEnvironment)
	if len(envs) != 1 {
		t.Fatalf("events = %d, want 1", len(envs))
	}
	env := envs[0].(domain.Environment)
	if env.DefaultSearchEngine != "DuckDuckGo" || env.HistoryURLs != 0 || env.HistoryDays != 0 || len(env.Prefs) != 0 {
		t.Errorf("env = %+v", env)
	}
}
