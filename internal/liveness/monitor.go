// internal/liveness/monitor.go
package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/broadcast-bridge/internal/metrics"
	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// Prober reports whether the producer's named mutex exists.
type Prober interface {
	Probe() error
}

// Config controls the monitor cadence.
type Config struct {
	// Quantum is the cancellation wait between checks of the clock.
	Quantum time.Duration
	// CheckInterval is the minimum time between service queries.
	CheckInterval time.Duration
}

// Deps are the monitor's collaborators. Metrics, Clock and Log are optional.
// Reporter is nil while a poller classifies the session: the poller folds the
// monitor's verdict into its own status and is then the only reporter.
type Deps struct {
	Manager  ServiceManager
	Producer Prober
	Session  *session.Session
	Reporter *status.Reporter
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	Log      *slog.Logger
}

// State is a copy of what the monitor last observed.
type State struct {
	ServiceInstalled bool
	ServiceRunning   bool
	ChannelReachable bool
	LastCheck        time.Time
}

// Monitor periodically queries the service manager and withdraws the
// live state when the producer service goes away.
type Monitor struct {
	cfg Config
	Deps

	installed atomic.Bool
	running   atomic.Bool
	reachable atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func New(cfg Config, d Deps) (*Monitor, error) {
	if cfg.Quantum <= 0 || cfg.CheckInterval <= 0 {
		return nil, errors.New("liveness: quantum and check interval must be > 0")
	}
	if d.Manager == nil || d.Producer == nil || d.Session == nil {
		return nil, errors.New("liveness: manager, producer and session required")
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	return &Monitor{cfg: cfg, Deps: d}, nil
}

// ServiceInstalled and ServiceRunning feed the poller's classification.
func (m *Monitor) ServiceInstalled() bool { return m.installed.Load() }
func (m *Monitor) ServiceRunning() bool   { return m.running.Load() }

func (m *Monitor) State() State {
	m.mu.Lock()
	last := m.lastCheck
	m.mu.Unlock()
	return State{
		ServiceInstalled: m.installed.Load(),
		ServiceRunning:   m.running.Load(),
		ChannelReachable: m.reachable.Load(),
		LastCheck:        last,
	}
}

// Run waits one quantum at a time and checks once the interval has elapsed.
// The first check happens after the first quantum.
func (m *Monitor) Run(ctx context.Context) {
	m.Log.Debug("liveness monitor started", "interval", m.cfg.CheckInterval)
	defer m.Log.Debug("liveness monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.Clock.After(m.cfg.Quantum):
		}

		if m.Clock.Since(m.last()) < m.cfg.CheckInterval {
			continue
		}
		m.CheckOnce(ctx)
	}
}

// CheckOnce queries the service manager and acts on the verdict.
func (m *Monitor) CheckOnce(ctx context.Context) ServiceState {
	now := m.Clock.Now()
	m.mu.Lock()
	m.lastCheck = now
	m.mu.Unlock()

	svc, err := m.Manager.Query(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return StateUnknown
		}
		m.Log.Debug("service query failed", "error", err)
		svc.State = StateNotInstalledOrStopped
	}
	m.installed.Store(svc.Installed)
	m.Metrics.ServiceChecks.WithLabelValues(svc.State.String()).Inc()

	if svc.State == StateRunning {
		m.running.Store(true)
		if err := m.Producer.Probe(); err != nil {
			m.reachable.Store(false)
			m.report(status.ServiceNotOnline)
		} else {
			m.reachable.Store(true)
		}
		return svc.State
	}

	m.running.Store(false)
	if svc.Installed {
		m.report(status.ServiceNotRunning)
	} else {
		m.report(status.ServiceNotInstalled)
	}

	m.Session.Lock()
	if m.Session.SetLiveLocked(false) {
		m.Metrics.SetLive(false)
	}
	m.Session.Unlock()

	return svc.State
}

func (m *Monitor) report(c status.Code) {
	if m.Reporter == nil {
		return
	}
	if m.Reporter.Report(c) {
		m.Metrics.SetStatus(c)
	}
}

func (m *Monitor) last() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck
}
