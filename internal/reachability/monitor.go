// Package reachability tracks whether the network is reachable by periodically probing a
// well-known TCP endpoint and reports status changes to the telemetry sink.
package reachability

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"appstatus/internal/telemetry"
	"appstatus/internal/telemetry/domain"
)

// Status values reported by CurrentStatusDescription.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DefaultInterval is how often a started Monitor re-probes.
const DefaultInterval = 30 * time.Second

// Prober checks reachability once. A nil error means reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// TCPProber dials Target and closes the connection immediately.
type TCPProber struct {
	Target  string
	Timeout time.Duration
}

// Probe implements Prober.
func (p TCPProber) Probe(ctx context.Context) error {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Target)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Monitor holds the last probed status and when it last changed.
type Monitor struct {
	prober   Prober
	sink     telemetry.Sink
	interval time.Duration
	nowF     func() time.Time

	mu        sync.Mutex
	status    string
	changedAt time.Time
	lastError string
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor returns a Monitor that has not probed yet. sink may be nil, in which case
// LogStatusChangeEvent is a no-op. interval <= 0 uses DefaultInterval.
func NewMonitor(prober Prober, sink telemetry.Sink, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		prober:   prober,
		sink:     sink,
		interval: interval,
		nowF:     time.Now,
	}
}

// StartMonitoring probes immediately and then every interval until ctx is done or Stop is called.
// Calling it again while running is a no-op.
func (m *Monitor) StartMonitoring(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.RefreshStatus(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RefreshStatus(ctx)
			}
		}
	}()
}

// Stop ends background probing and waits for the probe loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RefreshStatus probes once and records the result. Blocks for at most the prober's timeout.
func (m *Monitor) RefreshStatus(ctx context.Context) {
	if m.prober == nil {
		return
	}
	err := m.prober.Probe(ctx)
	if err != nil && ctx.Err() != nil {
		// Cancelled probes say nothing about the network.
		return
	}
	status := StatusOnline
	if err != nil {
		status = StatusOffline
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastError = err.Error()
	} else {
		m.lastError = ""
	}
	if status == m.status {
		return
	}
	if m.status != "" {
		log.Printf("reachability: status changed %s -> %s", m.status, status)
	}
	m.status = status
	m.changedAt = m.nowF()
}

// CurrentStatusDescription returns the last probed status, or "unknown" before the first probe.
func (m *Monitor) CurrentStatusDescription() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == "" {
		return domain.UnknownNetwork
	}
	return m.status
}

// LastError returns the error of the most recent failed probe, empty if it succeeded.
func (m *Monitor) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// LogStatusChangeEvent emits a NetworkStatus event with the current status and how long it has held.
func (m *Monitor) LogStatusChangeEvent(ctx context.Context) {
	if m.sink == nil {
		return
	}
	m.mu.Lock()
	network := m.status
	var held time.Duration
	if network == "" {
		network = domain.UnknownNetwork
	} else {
		held = m.nowF().Sub(m.changedAt)
	}
	m.mu.Unlock()

	m.sink.LogEvent(ctx, domain.NetworkStatus{
		Network:        network,
		DurationMillis: float64(held.Milliseconds()),
	})
}
