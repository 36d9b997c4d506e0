package lifecycle

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"appstatus/internal/debounce"
	"appstatus/internal/executor"
	"appstatus/internal/profile"
	"appstatus/internal/telemetry"
	"appstatus/internal/telemetry/domain"
)

// EnvironmentReporter emits rate-limited Environment snapshots.
type EnvironmentReporter struct {
	debouncer *debounce.Debouncer
	sink      telemetry.Sink
	exec      executor.Executor
	device    DeviceInfo
	// version returns the formatted app version at emission time.
	version   func() string
	debounced metric.Int64Counter
}

// NewEnvironmentReporter returns a reporter. device may be nil (placeholders are reported).
func NewEnvironmentReporter(d *debounce.Debouncer, sink telemetry.Sink, exec executor.Executor, device DeviceInfo, version func() string) *EnvironmentReporter {
	counter, err := otel.Meter("appstatus/lifecycle").Int64Counter(
		"appstatus.environment.debounced",
		metric.WithDescription("Environment reports suppressed by the debounce window."),
	)
	if err != nil {
		log.Printf("lifecycle: create counter: %v", err)
	}
	return &EnvironmentReporter{
		debouncer: d,
		sink:      sink,
		exec:      exec,
		device:    device,
		version:   version,
		debounced: counter,
	}
}

// ReportIfDue claims the environment fire for now and, if claimed, gathers and emits the
// snapshot off the caller's path. Returns whether a report was scheduled.
func (r *EnvironmentReporter) ReportIfDue(ctx context.Context, p profile.Provider, now time.Time) bool {
	if !r.debouncer.TryFire(debounce.ClassEnvironment, now) {
		if r.debounced != nil {
			r.debounced.Add(ctx, 1)
		}
		return false
	}
	r.exec.Submit(func(ctx context.Context) {
		r.sink.LogEvent(ctx, r.snapshot(ctx, p, now))
	})
	return true
}

func (r *EnvironmentReporter) snapshot(ctx context.Context, p profile.Provider, now time.Time) domain.Environment {
	ev := domain.Environment{Prefs: map[string]any{}}
	if r.device != nil {
		ev.Device = r.device.Model()
		ev.Language = r.device.Locale()
	}
	if r.version != nil {
		ev.Version = r.version()
	}
	if p == nil {
		return ev
	}
	ev.DefaultSearchEngine = p.DefaultSearchEngine(ctx)
	if n, err := p.HistoryCount(ctx); err != nil {
		log.Printf("lifecycle: history count: %v", err)
	} else {
		ev.HistoryURLs = n
	}
	if oldest, ok, err := p.OldestVisit(ctx); err != nil {
		log.Printf("lifecycle: oldest visit: %v", err)
	} else if ok {
		ev.HistoryDays = profile.DaysSince(oldest, now)
	}
	if prefs, err := p.Preferences(ctx); err != nil {
		log.Printf("lifecycle: preferences: %v", err)
	} else if prefs != nil {
		ev.Prefs = prefs
	}
	return ev
}
