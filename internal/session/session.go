// Package session holds the state one initialized consumer shares between
// its poller, its liveness monitor and the registration API.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// NotificationType tags a Notification.
type NotificationType uint8

const (
	EffectNotification NotificationType = 1
	StatusNotification NotificationType = 2
)

// LiveState is the payload of a status notification.
type LiveState uint8

const (
	Live    LiveState = 1
	NotLive LiveState = 2
)

func (s LiveState) String() string {
	if s == Live {
		return "live"
	}
	return "not-live"
}

// Notification is what the callback receives. Effect is set for
// EffectNotification, State for StatusNotification.
type Notification struct {
	Type   NotificationType
	Effect channel.Effect
	State  LiveState
}

// Callback receives notifications on the poller or monitor goroutine.
type Callback func(Notification)

// handle boxes a callback so it can be swapped atomically and compared.
type handle struct {
	fn Callback
}

// Session is the explicit context of one consumer.
//
// The callback is an atomic handle: delivery loads it once and calls it
// without the lock, so clearing it never races a delivery in flight.
// The running flag is the handle a Live was last emitted for; replacing or
// clearing the callback therefore reads as not running.
type Session struct {
	Index int
	Title string

	Reporter *status.Reporter

	mu      sync.Mutex
	cb      atomic.Pointer[handle]
	running atomic.Pointer[handle] // written under mu

	clock        clockwork.Clock
	notLiveSince atomic.Int64 // unix nanos
}

// New creates a session for the resolved identity.
func New(index int, title string, reporter *status.Reporter, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if reporter == nil {
		reporter = status.NewReporter(nil, nil)
	}
	s := &Session{
		Index:    index,
		Title:    title,
		Reporter: reporter,
		clock:    clock,
	}
	s.notLiveSince.Store(clock.Now().UnixNano())
	return s
}

// ---- lock ----

func (s *Session) Lock()         { s.mu.Lock() }
func (s *Session) TryLock() bool { return s.mu.TryLock() }
func (s *Session) Unlock()       { s.mu.Unlock() }

// ---- callback registration ----

// Register installs cb if none is installed. It blocks on the session lock.
// First registration wins; it reports whether cb was installed.
func (s *Session) Register(cb Callback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cb.Load() != nil {
		return false
	}
	s.cb.Store(&handle{fn: cb})
	return true
}

// Unregister clears the callback. The lock is only tried: the atomic swap
// is safe on its own, the lock merely lets a cycle in progress finish first
// when it is free.
func (s *Session) Unregister() {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
	}
	if s.cb.Swap(nil) != nil && s.running.Load() != nil {
		s.running.Store(nil)
		s.markNotLive()
	}
}

// Registered reports whether a callback is installed.
func (s *Session) Registered() bool {
	return s.cb.Load() != nil
}

// ---- live state ----

// Running reports whether Live was emitted to the current callback.
func (s *Session) Running() bool {
	h := s.running.Load()
	return h != nil && h == s.cb.Load()
}

// SetLiveLocked emits a Live or NotLive notification if the state changes.
// Without a callback nothing is emitted and the flag is untouched.
// The caller holds the session lock. It reports whether a notification
// was emitted.
func (s *Session) SetLiveLocked(live bool) bool {
	h := s.cb.Load()
	if h == nil {
		return false
	}
	if live == (s.running.Load() == h) {
		return false
	}

	state := NotLive
	if live {
		s.running.Store(h)
		state = Live
	} else {
		s.running.Store(nil)
		s.markNotLive()
	}

	h.fn(Notification{Type: StatusNotification, State: state})
	return true
}

// DeliverLocked hands an effect to the callback. The caller holds the
// session lock. It reports whether a callback received it.
func (s *Session) DeliverLocked(e channel.Effect) bool {
	h := s.cb.Load()
	if h == nil {
		return false
	}
	h.fn(Notification{Type: EffectNotification, Effect: e})
	return true
}

// NotLiveFor returns how long the session has not been live; zero while live.
func (s *Session) NotLiveFor() time.Duration {
	if s.Running() {
		return 0
	}
	return s.clock.Since(time.Unix(0, s.notLiveSince.Load()))
}

func (s *Session) markNotLive() {
	s.notLiveSince.Store(s.clock.Now().UnixNano())
}
