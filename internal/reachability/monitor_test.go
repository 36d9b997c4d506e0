package reachability

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"appstatus/internal/telemetry/domain"
)

type mockProber struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *mockProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *mockProber) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *mockProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type mockSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *mockSink) LogEvent(ctx context.Context, ev domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *mockSink) StoreCurrentSequence(ctx context.Context) {}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCurrentStatusDescription_UnknownBeforeProbe(t *testing.T) {
	m := NewMonitor(&mockProber{}, nil, 0)
	if got := m.CurrentStatusDescription(); got != domain.UnknownNetwork {
		t.Errorf("status = %q, want %q", got, domain.UnknownNetwork)
	}
}

func TestRefreshStatus_Transitions(t *testing.T) {
	p := &mockProber{}
	m := NewMonitor(p, nil, 0)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.nowF = clock.now
	ctx := context.Background()

	m.RefreshStatus(ctx)
	if got := m.CurrentStatusDescription(); got != StatusOnline {
		t.Fatalf("status = %q, want online", got)
	}
	first := m.changedAt

	clock.advance(time.Minute)
	m.RefreshStatus(ctx)
	if !m.changedAt.Equal(first) {
		t.Error("unchanged status should keep changedAt")
	}

	p.set(errors.New("connection refused"))
	clock.advance(time.Minute)
	m.RefreshStatus(ctx)
	if got := m.CurrentStatusDescription(); got != StatusOffline {
		t.Fatalf("status = %q, want offline", got)
	}
	if m.LastError() != "connection refused" {
		t.Errorf("LastError = %q", m.LastError())
	}
	if !m.changedAt.Equal(clock.t) {
		t.Errorf("changedAt = %v, want %v", m.changedAt, clock.t)
	}
}

func TestRefreshStatus_CancelledProbeIgnored(t *testing.T) {
	p := &mockProber{err: context.Canceled}
	m := NewMonitor(p, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.RefreshStatus(ctx)
	if got := m.CurrentStatusDescription(); got != domain.UnknownNetwork {
		t.Errorf("status = %q, want unknown", got)
	}
}

func TestLogStatusChangeEvent(t *testing.T) {
	p := &mockProber{}
	sink := &mockSink{}
	m := NewMonitor(p, sink, 0)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.nowF = clock.now

	m.LogStatusChangeEvent(context.Background())
	m.RefreshStatus(context.Background())
	clock.advance(2500 * time.Millisecond)
	m.LogStatusChangeEvent(context.Background())

	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want 2", len(sink.events))
	}
	first := sink.events[0].(domain.NetworkStatus)
	if first.Network != domain.UnknownNetwork || first.DurationMillis != 0 {
		t.Errorf("first = %+v", first)
	}
	second := sink.events[1].(domain.NetworkStatus)
	if second.Network != StatusOnline || second.DurationMillis != 2500 {
		t.Errorf("second = %+v", second)
	}
}

func TestLogStatusChangeEvent_NilSink(t *testing.T) {
	m := NewMonitor(&mockProber{}, nil, 0)
	m.LogStatusChangeEvent(context.Background())
}

func TestStartMonitoring_ProbesAndStops(t *testing.T) {
	p := &mockProber{}
	m := NewMonitor(p, nil, 10*time.Millisecond)
	m.StartMonitoring(context.Background())
	m.StartMonitoring(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for p.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	if p.count() < 2 {
		t.Fatalf("probe calls = %d, want >= 2", p.count())
	}
	if got := m.CurrentStatusDescription(); got != StatusOnline {
		t.Errorf("status = %q, want online", got)
	}
	after := p.count()
	time.Sleep(30 * time.Millisecond)
	if p.count() != after {
		t.Error("probing continued after Stop")
	}
	m.Stop()
}

func TestTCPProber(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	addr := lis.Addr().String()

	p := TCPProber{Target: addr, Timeout: time.Second}
	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("Probe reachable: %v", err)
	}
	lis.Close()
	if err := p.Probe(context.Background()); err == nil {
		t.Error("Probe closed listener should fail")
	}
}
