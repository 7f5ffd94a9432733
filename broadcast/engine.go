package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/identity"
	"github.com/tamzrod/broadcast-bridge/internal/ipc"
	"github.com/tamzrod/broadcast-bridge/internal/liveness"
	"github.com/tamzrod/broadcast-bridge/internal/logging"
	"github.com/tamzrod/broadcast-bridge/internal/metrics"
	"github.com/tamzrod/broadcast-bridge/internal/poller"
	"github.com/tamzrod/broadcast-bridge/internal/registry"
	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// Engine owns one consumer session: its identity, its background tasks
// and the lock they share with the registration API.
type Engine struct {
	opts    Options
	metrics *metrics.Metrics

	// lifecycle serializes Init, InitEx and UnInit.
	lifecycle sync.Mutex
	state     atomic.Uint32

	sess  atomic.Pointer[session.Session]
	ident identity.Identity

	cancel  context.CancelFunc
	tasks   []*task
	newData *ipc.Event
	region  *channel.Region // unmapped by the poller task on exit
}

type task struct {
	name string
	done chan struct{}
}

// New creates an uninitialized engine. Collectors are registered once here
// so the engine can be initialized repeatedly.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:    opts,
		metrics: metrics.New(opts.Registerer),
	}
}

// State returns the lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Identity returns the identity resolved by the last Init or InitEx.
func (e *Engine) Identity() identity.Identity {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.ident
}

// ---- init ----

// Init verifies appID against the producer's manifest, registers the
// application and starts consuming.
func (e *Engine) Init(ctx context.Context, appID uuid.UUID) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.state.CompareAndSwap(uint32(Uninitialized), uint32(Initializing)) {
		return ErrAlreadyInitialized
	}
	log := e.opts.Log.With("guid", identity.RegistryForm(appID))

	store, err := e.installedStore()
	if err != nil {
		e.state.Store(uint32(Uninitialized))
		log.Error("broadcast init failed", "error", err)
		return err
	}

	id, err := identity.NewVerifier(store, e.opts.AppPath, e.opts.Log).Verify(ctx, appID)
	if err != nil {
		e.state.Store(uint32(Uninitialized))
		err = mapIdentityError(err)
		log.Error("broadcast init failed", "error", err)
		return err
	}

	e.ident = id
	e.start(store, id.Index, id.Title)
	return nil
}

// InitEx starts consuming under a caller-supplied identity. Verification
// is skipped; the application is registered directly.
// The lifecycle state is checked before the parameters.
func (e *Engine) InitEx(ctx context.Context, index int, title string) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.state.CompareAndSwap(uint32(Uninitialized), uint32(Initializing)) {
		return ErrAlreadyInitialized
	}
	if index < 0 || strings.TrimSpace(title) == "" {
		e.state.Store(uint32(Uninitialized))
		return fmt.Errorf("%w: index %d, title %q", ErrInvalidParameter, index, title)
	}
	if err := ctx.Err(); err != nil {
		e.state.Store(uint32(Uninitialized))
		return err
	}

	store, err := e.installedStore()
	if err != nil {
		e.state.Store(uint32(Uninitialized))
		e.opts.Log.Error("broadcast init failed", "error", err)
		return err
	}

	if _, err := store.Register(title, e.appPath(), index); err != nil {
		e.opts.Log.Warn("application registration failed", "title", title, "error", err)
	}

	e.ident = identity.Identity{Index: index, Title: title, Status: identity.Unverified}
	e.start(store, index, title)
	return nil
}

func (e *Engine) installedStore() (*registry.Store, error) {
	store, err := registry.Open(e.opts.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	ok, err := store.Installed()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return store, nil
}

func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrNotInstalled):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, identity.ErrUnknownIdentity):
		return fmt.Errorf("%w: %w", ErrUnknownIdentity, err)
	case errors.Is(err, identity.ErrSetupRequired):
		return fmt.Errorf("%w: %w", ErrResourceDisabled, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
}

func (e *Engine) appPath() string {
	if e.opts.AppPath != "" {
		return e.opts.AppPath
	}
	exe, _ := os.Executable()
	return exe
}

// start spawns the background tasks. Failures to open IPC objects are
// logged and never returned: a consumer without a producer is not an error.
func (e *Engine) start(store *registry.Store, index int, title string) {
	o := e.opts
	log := logging.WithSession(o.Log, index, title)

	e.pulseAppCount(log)

	newData, err := ipc.CreateEvent(o.IPCDir, o.NewDataEvent)
	if err != nil {
		log.Error("failed to create new data event", "error", err)
	}
	e.newData = newData

	reporter := status.NewReporter(log, nil)
	sess := session.New(index, title, reporter, o.Clock)
	producer := ipc.NewMutex(o.IPCDir, o.ProducerMutex)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.tasks = nil

	monitor, err := liveness.New(liveness.Config{
		Quantum:       o.MonitorQuantum,
		CheckInterval: o.ServiceInterval,
	}, liveness.Deps{
		Manager:  o.ServiceManager,
		Producer: producer,
		Session:  sess,
		Reporter: reporter,
		Metrics:  e.metrics,
		Clock:    o.Clock,
		Log:      log,
	})
	if err != nil {
		log.Error("failed to create liveness monitor", "error", err)
	}

	var p *poller.Poller
	region, err := channel.OpenOrCreate(o.IPCDir, o.SharedMemory)
	if err != nil {
		log.Error("failed to map shared channel", "error", err)
	} else {
		var live poller.Liveness
		if monitor != nil {
			live = monitor
		}
		p, err = poller.New(poller.Config{
			Interval:    o.PollInterval,
			IdleRecheck: o.IdleRecheck,
			LiveRecheck: o.LiveRecheck,
			NewDataPoll: o.NewDataPoll,
		}, poller.Deps{
			Source:   region,
			Producer: producer,
			Policy:   store,
			Liveness: live,
			Session:  sess,
			Metrics:  e.metrics,
			Clock:    o.Clock,
			Log:      log,
		})
		if err != nil {
			log.Error("failed to create poller", "error", err)
			_ = region.Close()
			p = nil
		}
	}

	if monitor != nil {
		if p != nil {
			// the poller classifies with the monitor's verdict folded in
			monitor.Reporter = nil
		}
		// seed the service verdict before the poller's first cycle
		monitor.CheckOnce(ctx)
		e.spawn("monitor", func() { monitor.Run(ctx) })
	}

	if p != nil {
		var ready poller.Waiter
		if newData != nil {
			ready = newData
		}
		e.region = region
		e.spawn("poller", func() {
			defer func() {
				if err := region.Close(); err != nil {
					log.Warn("failed to unmap shared channel", "error", err)
				}
			}()
			p.Run(ctx, ready)
		})
	}

	e.sess.Store(sess)
	e.state.Store(uint32(Running))
	log.Info("broadcast initialized", "tasks", len(e.tasks))
}

func (e *Engine) spawn(name string, fn func()) {
	t := &task{name: name, done: make(chan struct{})}
	e.tasks = append(e.tasks, t)
	go func() {
		defer close(t.done)
		fn()
	}()
}

// pulseAppCount wakes other consumers watching the app-count event.
func (e *Engine) pulseAppCount(log *slog.Logger) {
	ev, err := ipc.OpenEvent(e.opts.IPCDir, e.opts.AppCountEvent)
	if errors.Is(err, ipc.ErrAbsent) {
		return
	}
	if err != nil {
		log.Warn("failed to open app count event", "error", err)
		return
	}
	defer ev.Close()
	if err := ev.Pulse(); err != nil {
		log.Warn("failed to pulse app count event", "error", err)
	}
}

// ---- uninit ----

// UnInit cancels the background tasks and waits at most JoinTimeout for
// each. A task that does not stop in time is abandoned.
func (e *Engine) UnInit() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.state.CompareAndSwap(uint32(Running), uint32(Uninitializing)) {
		return ErrNotValidState
	}
	sess := e.sess.Load()
	log := logging.WithSession(e.opts.Log, sess.Index, sess.Title)

	e.cancel()
	for _, t := range e.tasks {
		select {
		case <-t.done:
		case <-e.opts.Clock.After(e.opts.JoinTimeout):
			log.Warn("task did not stop in time, abandoning", "task", t.name, "timeout", e.opts.JoinTimeout)
		}
	}
	e.tasks = nil
	e.region = nil

	if e.newData != nil {
		if err := e.newData.Close(); err != nil {
			log.Warn("failed to close new data event", "error", err)
		}
		e.newData = nil
	}
	e.pulseAppCount(log)

	sess.Unregister()
	e.sess.Store(nil)
	e.state.Store(uint32(Uninitialized))
	log.Info("broadcast uninitialized")
	return nil
}

// ---- callback ----

// RegisterCallback installs cb. The first registration wins; later ones
// are ignored without error.
func (e *Engine) RegisterCallback(cb Callback) error {
	if cb == nil {
		return ErrInvalidParameter
	}
	sess := e.sess.Load()
	if sess == nil {
		return ErrNotValidState
	}
	if !sess.Register(cb) {
		e.opts.Log.Debug("callback already registered, ignoring")
	}
	return nil
}

// UnregisterCallback clears the callback. A cycle in flight may still
// complete its delivery.
func (e *Engine) UnregisterCallback() error {
	sess := e.sess.Load()
	if sess == nil {
		return ErrNotValidState
	}
	sess.Unregister()
	return nil
}

// ---- status ----

// Status returns the health snapshot. Uninitialized engines report a zero
// snapshot.
func (e *Engine) Status() Snapshot {
	sess := e.sess.Load()
	if sess == nil {
		return Snapshot{}
	}

	secs := sess.NotLiveFor().Seconds()
	if secs > math.MaxUint16 {
		secs = math.MaxUint16
	}
	return Snapshot{
		Live:           sess.Running(),
		Code:           sess.Reporter.Last(),
		SecondsNotLive: uint16(secs),
		ConsumerIndex:  uint16(sess.Index),
	}
}
