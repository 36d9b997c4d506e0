// Package lifecycle turns host app lifecycle callbacks into telemetry: it classifies each run as
// install, update or unchanged, emits usage events on every foreground/background transition and
// periodically reports an environment snapshot.
package lifecycle

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"appstatus/internal/debounce"
	"appstatus/internal/executor"
	"appstatus/internal/profile"
	"appstatus/internal/telemetry"
	"appstatus/internal/telemetry/domain"
	"appstatus/internal/version"
)

// Reachability reports network status. Implemented by reachability.Monitor.
type Reachability interface {
	StartMonitoring(ctx context.Context)
	RefreshStatus(ctx context.Context)
	CurrentStatusDescription() string
	LogStatusChangeEvent(ctx context.Context)
}

// DeviceInfo reports device facts. Implemented by device.Host.
type DeviceInfo interface {
	Model() string
	BatteryLevel() float64
	Locale() string
}

// Deps are the collaborators of a Coordinator. Versions, Sink and Executor are required.
type Deps struct {
	Versions     *version.Store
	Sink         telemetry.Sink
	Executor     executor.Executor
	Debouncer    *debounce.Debouncer
	Reachability Reachability
	Device       DeviceInfo
	// Now defaults to time.Now.
	Now func() time.Time
}

// Coordinator receives lifecycle callbacks from the host on a single interactive goroutine and
// hands all telemetry work to the executor. None of its methods block on I/O.
type Coordinator struct {
	versions *version.Store
	sink     telemetry.Sink
	exec     executor.Executor
	reach    Reachability
	device   DeviceInfo
	env      *EnvironmentReporter
	nowF     func() time.Time

	mu    sync.Mutex
	phase Phase
	// started is set by the first OnAppStarted, independent of the phase it arrives in.
	started atomic.Bool

	// lastOpened is the UnixNano of the last OnBecomeActive; 0 when the app never became active.
	lastOpened atomic.Int64
	cached     atomic.Pointer[version.Descriptor]
}

// New returns a Coordinator in PhaseNotStarted.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		versions: deps.Versions,
		sink:     deps.Sink,
		exec:     deps.Executor,
		reach:    deps.Reachability,
		device:   deps.Device,
		nowF:     deps.Now,
	}
	if c.nowF == nil {
		c.nowF = time.Now
	}
	d := deps.Debouncer
	if d == nil {
		d = debounce.New(map[string]time.Duration{debounce.ClassEnvironment: debounce.DefaultEnvironmentWindow})
	}
	c.env = NewEnvironmentReporter(d, c.sink, c.exec, c.device, c.CurrentAppVersion)
	return c
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// transition moves to next. It returns false, leaving the phase unchanged, once terminated.
func (c *Coordinator) transition(next Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseTerminated {
		log.Printf("lifecycle: ignoring %s after termination", next)
		return false
	}
	if !expected(c.phase, next) {
		log.Printf("lifecycle: unexpected transition %s -> %s", c.phase, next)
	}
	c.phase = next
	return true
}

// markStarted records the first start. A start that arrives after the app already became active
// keeps the current phase.
func (c *Coordinator) markStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseTerminated {
		log.Printf("lifecycle: ignoring %s after termination", PhaseStarted)
		return false
	}
	if !c.started.CompareAndSwap(false, true) {
		log.Printf("lifecycle: ignoring repeated start")
		return false
	}
	if c.phase == PhaseNotStarted {
		c.phase = PhaseStarted
	} else {
		log.Printf("lifecycle: start arrived in phase %s", c.phase)
	}
	return true
}

// OnAppStarted starts network monitoring and classifies the run in the background.
// Only the first call has an effect, whatever the current phase.
func (c *Coordinator) OnAppStarted(ctx context.Context) {
	if !c.markStarted() {
		return
	}
	if c.reach != nil {
		c.reach.StartMonitoring(ctx)
	}
	c.exec.Submit(c.classifyRun)
}

// classifyRun compares the running descriptor to the stored one, persists the running one and
// emits a LifeCycle event for an install or update.
func (c *Coordinator) classifyRun(ctx context.Context) {
	current := c.versions.Current()
	stored, ok := c.versions.Load(ctx)

	var action string
	switch {
	case !ok:
		action = domain.ActionInstall
	case current.Newer(stored):
		action = domain.ActionUpdate
	}

	if err := c.versions.Save(ctx, current); err != nil {
		log.Printf("lifecycle: save version descriptor: %v", err)
	}
	c.cached.Store(&current)

	if action == "" {
		return
	}
	c.sink.LogEvent(ctx, domain.LifeCycle{
		Action:  action,
		Version: version.Format(current, c.versions.IsRelease()),
	})
}

// OnBecomeActive records the open time, refreshes reachability, emits an Active usage event and
// reports the environment when due. p may be nil.
func (c *Coordinator) OnBecomeActive(ctx context.Context, p profile.Provider) {
	if !c.transition(PhaseActive) {
		return
	}
	now := c.nowF()
	c.lastOpened.Store(now.UnixNano())
	if c.reach != nil {
		c.exec.Submit(c.reach.RefreshStatus)
	}
	c.logUsage(domain.ActionActive, now)
	c.env.ReportIfDue(ctx, p, now)
}

// OnBecomeInactive emits an Inactive usage event followed by a network status event.
func (c *Coordinator) OnBecomeInactive(ctx context.Context) {
	if !c.transition(PhaseInactive) {
		return
	}
	c.logUsage(domain.ActionInactive, c.nowF())
	if c.reach != nil {
		c.exec.Submit(c.reach.LogStatusChangeEvent)
	}
}

// OnEnterBackground emits a background usage event and checkpoints the telemetry sequence.
func (c *Coordinator) OnEnterBackground(ctx context.Context) {
	if !c.transition(PhaseBackground) {
		return
	}
	c.logUsage(domain.ActionBackground, c.nowF())
	c.exec.Submit(c.sink.StoreCurrentSequence)
}

// OnWillTerminate emits a terminate usage event and checkpoints the telemetry sequence.
// Every later callback is ignored.
func (c *Coordinator) OnWillTerminate(ctx context.Context) {
	if !c.transition(PhaseTerminated) {
		return
	}
	c.logUsage(domain.ActionTerminate, c.nowF())
	c.exec.Submit(c.sink.StoreCurrentSequence)
}

// CurrentAppVersion returns the formatted version of the running app.
func (c *Coordinator) CurrentAppVersion() string {
	d := c.cached.Load()
	if d == nil {
		current := c.versions.Current()
		d = &current
	}
	return version.Format(*d, c.versions.IsRelease())
}

// logUsage snapshots the elapsed foreground time at now and emits the usage event off the caller's path.
func (c *Coordinator) logUsage(action string, now time.Time) {
	var elapsed float64
	if opened := c.lastOpened.Load(); opened != 0 {
		elapsed = float64(now.Sub(time.Unix(0, opened))) / float64(time.Millisecond)
	}
	c.exec.Submit(func(ctx context.Context) {
		network := domain.UnknownNetwork
		if c.reach != nil {
			if s := c.reach.CurrentStatusDescription(); s != "" {
				network = s
			}
		}
		battery := domain.UnknownBattery
		if c.device != nil {
			battery = c.device.BatteryLevel()
		}
		c.sink.LogEvent(ctx, domain.ApplicationUsage{
			Action:        action,
			Network:       network,
			Battery:       battery,
			ElapsedMillis: elapsed,
		})
	})
}
