// internal/poller/poller.go
package poller

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/metrics"
	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	// Interval is the cycle budget; zero disables the sleep.
	Interval time.Duration
	// IdleRecheck is the validation period while not live.
	IdleRecheck time.Duration
	// LiveRecheck is the validation period while live.
	LiveRecheck time.Duration
	// NewDataPoll is the sampling period of the initial new-data wait.
	NewDataPoll time.Duration
}

// Deps are the poller's collaborators. Liveness, Metrics and Log are optional.
type Deps struct {
	Source   Source
	Producer Prober
	Policy   Policy
	Liveness Liveness
	Session  *session.Session
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	Log      *slog.Logger
}

// Poller samples the shared channel and drives the session's callback.
// Validation state below is only touched by the goroutine running it.
type Poller struct {
	cfg Config
	Deps

	validated      bool
	lastValidation time.Time
	deviceFound    bool
	mutexReachable bool
	featureEnabled bool
	appEnabled     bool
}

// New creates a poller with immutable config.
func New(cfg Config, d Deps) (*Poller, error) {
	if cfg.Interval < 0 {
		return nil, errors.New("poller: interval must be >= 0")
	}
	if cfg.IdleRecheck <= 0 || cfg.LiveRecheck <= 0 {
		return nil, errors.New("poller: recheck periods must be > 0")
	}
	if d.Source == nil || d.Producer == nil || d.Policy == nil || d.Session == nil {
		return nil, errors.New("poller: source, producer, policy and session required")
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
	return &Poller{cfg: cfg, Deps: d}, nil
}

// PollOnce performs exactly one cycle. The caller holds the session lock.
func (p *Poller) PollOnce() CycleResult {
	now := p.Clock.Now()
	res := CycleResult{At: now, Cursor: p.Source.Cursor()}

	// not yet populated, or a torn cursor
	if res.Cursor >= channel.SlotCount {
		res.Outcome = OutcomeSkipped
		res.Status = p.Session.Reporter.Last()
		p.Metrics.PollCycles.WithLabelValues(string(res.Outcome)).Inc()
		return res
	}
	res.Slot = p.Source.Slot(int(res.Cursor))

	if p.due(now) {
		p.validate(now)
		res.Validated = true
	}

	res.Status = status.Classify(p.inputs())
	if p.Session.Reporter.Report(res.Status) {
		p.Metrics.SetStatus(res.Status)
	}

	switch {
	case !p.Session.Registered():
		res.Outcome = OutcomeNoCallback

	case p.gatesOpen():
		if p.suppressed(res.Slot) {
			res.Outcome = OutcomeFiltered
			break
		}
		if p.Session.SetLiveLocked(true) {
			res.WentLive = true
			p.Metrics.SetLive(true)
		}
		if p.Session.DeliverLocked(res.Slot.Effect) {
			p.Metrics.EffectsDelivered.Inc()
		}
		res.Outcome = OutcomeDelivered

	default:
		if p.Session.SetLiveLocked(false) {
			res.WentNotLive = true
			p.Metrics.SetLive(false)
		}
		res.Outcome = OutcomeGated
	}

	p.Metrics.PollCycles.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// due: eager while not live, relaxed while live.
func (p *Poller) due(now time.Time) bool {
	if !p.validated {
		return true
	}
	elapsed := now.Sub(p.lastValidation)
	if !p.Session.Running() && elapsed >= p.cfg.IdleRecheck {
		return true
	}
	return elapsed >= p.cfg.LiveRecheck
}

func (p *Poller) validate(now time.Time) {
	p.mutexReachable = p.Producer.Probe() == nil
	if p.mutexReachable {
		p.deviceFound = true
	}
	p.featureEnabled = p.Policy.FeatureEnabled()
	p.appEnabled = p.Policy.AppEnabled(p.Session.Title)

	p.validated = true
	p.lastValidation = now
	p.Metrics.Validations.Inc()
}

func (p *Poller) inputs() status.Inputs {
	in := status.Inputs{
		DeviceFound:    p.deviceFound,
		MutexReachable: p.mutexReachable,
		FeatureEnabled: p.featureEnabled,
		AppEnabled:     p.appEnabled,
	}
	if p.Liveness != nil {
		in.ServiceKnown = true
		in.ServiceInstalled = p.Liveness.ServiceInstalled()
		in.ServiceRunning = p.Liveness.ServiceRunning()
	}
	return in
}

// gatesOpen also requires the monitor's service verdict, read every cycle.
func (p *Poller) gatesOpen() bool {
	if p.Liveness != nil && !p.Liveness.ServiceRunning() {
		return false
	}
	return p.mutexReachable && p.deviceFound && p.featureEnabled && p.appEnabled
}

// suppressed: app-specific effects addressed to another consumer index.
func (p *Poller) suppressed(s channel.EventSlot) bool {
	return s.Effect.AppSpecific && s.Index != 0 && int64(s.Index) != int64(p.Session.Index)
}
