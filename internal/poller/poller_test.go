package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/broadcast-bridge/internal/channel"
	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// ---- fakes ----

type fakeProber struct {
	mu     sync.Mutex
	absent bool
	probes int
}

func (f *fakeProber) Probe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.absent {
		return errors.New("absent")
	}
	return nil
}

func (f *fakeProber) set(absent bool) {
	f.mu.Lock()
	f.absent = absent
	f.mu.Unlock()
}

type fakePolicy struct {
	mu      sync.Mutex
	feature bool
	app     bool
}

func (f *fakePolicy) FeatureEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feature
}

func (f *fakePolicy) AppEnabled(string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app
}

type fakeLiveness struct{ installed, running bool }

func (f *fakeLiveness) ServiceInstalled() bool { return f.installed }
func (f *fakeLiveness) ServiceRunning() bool   { return f.running }

type recorder struct {
	mu  sync.Mutex
	got []session.Notification
}

func (r *recorder) callback(n session.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) all() []session.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Notification(nil), r.got...)
}

type fixture struct {
	img    channel.View
	prober *fakeProber
	policy *fakePolicy
	live   *fakeLiveness
	sess   *session.Session
	rec    *recorder
	clock  *clockwork.FakeClock
	p      *Poller
}

func newFixture(t *testing.T, index int) *fixture {
	t.Helper()
	f := &fixture{
		img:    channel.NewImage(),
		prober: &fakeProber{},
		policy: &fakePolicy{feature: true, app: true},
		live:   &fakeLiveness{installed: true, running: true},
		rec:    &recorder{},
		clock:  clockwork.NewFakeClock(),
	}
	f.sess = session.New(index, "Sample", status.NewReporter(nil, nil), f.clock)
	f.sess.Register(f.rec.callback)

	p, err := New(Config{
		IdleRecheck: 500 * time.Millisecond,
		LiveRecheck: 2 * time.Second,
	}, Deps{
		Source:   f.img,
		Producer: f.prober,
		Policy:   f.policy,
		Liveness: f.live,
		Session:  f.sess,
		Clock:    f.clock,
	})
	require.NoError(t, err)
	f.p = p
	return f
}

func (f *fixture) poll() CycleResult {
	f.sess.Lock()
	defer f.sess.Unlock()
	return f.p.PollOnce()
}

func effect(appSpecific bool, r uint8) channel.Effect {
	e := channel.Effect{AppSpecific: appSpecific}
	e.Colors[0] = channel.RGBA(r, 0, 0, 0)
	return e
}

func live() session.Notification {
	return session.Notification{Type: session.StatusNotification, State: session.Live}
}

func notLive() session.Notification {
	return session.Notification{Type: session.StatusNotification, State: session.NotLive}
}

func delivered(e channel.Effect) session.Notification {
	return session.Notification{Type: session.EffectNotification, Effect: e}
}

// ---- tests ----

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Interval: -1, IdleRecheck: 1, LiveRecheck: 1}, Deps{})
	require.Error(t, err)

	_, err = New(Config{IdleRecheck: 1, LiveRecheck: 1}, Deps{})
	require.Error(t, err)
}

func TestPollOnce_CursorOutOfRange(t *testing.T) {
	f := newFixture(t, 3)
	f.img.SetCursor(channel.SlotCount)

	res := f.poll()
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.False(t, res.Validated)

	f.img.SetCursor(0xFFFFFFFF)
	assert.Equal(t, OutcomeSkipped, f.poll().Outcome)

	assert.Empty(t, f.rec.all())
	assert.Zero(t, f.prober.probes)
}

func TestPollOnce_LivePrecedesEffect(t *testing.T) {
	f := newFixture(t, 3)
	e := effect(false, 10)
	f.img.Publish(channel.EventSlot{Effect: e})

	res := f.poll()
	require.Equal(t, OutcomeDelivered, res.Outcome)
	assert.True(t, res.Validated)
	assert.True(t, res.WentLive)
	assert.Equal(t, status.Success, res.Status)

	res = f.poll()
	assert.False(t, res.WentLive)

	assert.Equal(t, []session.Notification{live(), delivered(e), delivered(e)}, f.rec.all())
}

func TestPollOnce_NotLiveIsEdgeTriggered(t *testing.T) {
	f := newFixture(t, 3)
	e := effect(false, 10)
	f.img.Publish(channel.EventSlot{Effect: e})
	f.poll()

	f.policy.mu.Lock()
	f.policy.app = false
	f.policy.mu.Unlock()

	// live validation period is 2s
	f.clock.Advance(2 * time.Second)
	res := f.poll()
	require.True(t, res.Validated)
	assert.Equal(t, OutcomeGated, res.Outcome)
	assert.True(t, res.WentNotLive)
	assert.Equal(t, status.AppDisabled, res.Status)

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		res = f.poll()
		assert.False(t, res.WentNotLive)
		assert.False(t, res.WentLive)
	}

	assert.Equal(t, []session.Notification{live(), delivered(e), notLive()}, f.rec.all())
}

func TestPollOnce_StrictlyAlternating(t *testing.T) {
	f := newFixture(t, 3)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})

	flips := []bool{true, true, false, false, true, false, true, true}
	for _, absent := range flips {
		f.prober.set(absent)
		f.clock.Advance(2 * time.Second)
		f.poll()
	}

	var states []session.LiveState
	for _, n := range f.rec.all() {
		if n.Type == session.StatusNotification {
			states = append(states, n.State)
		}
	}
	require.NotEmpty(t, states)
	for i := 1; i < len(states); i++ {
		assert.NotEqual(t, states[i-1], states[i], "consecutive %s at %d", states[i], i)
	}
}

func TestPollOnce_AppSpecificFilter(t *testing.T) {
	f := newFixture(t, 3)

	other := effect(true, 1)
	f.img.Publish(channel.EventSlot{Index: 4, Effect: other})
	res := f.poll()
	assert.Equal(t, OutcomeFiltered, res.Outcome)
	assert.False(t, res.WentLive)
	assert.Empty(t, f.rec.all())

	mine := effect(true, 2)
	f.img.Publish(channel.EventSlot{Index: 3, Effect: mine})
	assert.Equal(t, OutcomeDelivered, f.poll().Outcome)

	// index 0 addresses every consumer
	broadcast := effect(true, 3)
	f.img.Publish(channel.EventSlot{Index: 0, Effect: broadcast})
	assert.Equal(t, OutcomeDelivered, f.poll().Outcome)

	// not app-specific: index is irrelevant
	plain := effect(false, 4)
	f.img.Publish(channel.EventSlot{Index: 9, Effect: plain})
	assert.Equal(t, OutcomeDelivered, f.poll().Outcome)

	assert.Equal(t, []session.Notification{
		live(), delivered(mine), delivered(broadcast), delivered(plain),
	}, f.rec.all())
}

func TestPollOnce_FilteredDoesNotEmitNotLive(t *testing.T) {
	f := newFixture(t, 3)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})
	f.poll()

	f.img.Publish(channel.EventSlot{Index: 4, Effect: effect(true, 2)})
	res := f.poll()
	assert.Equal(t, OutcomeFiltered, res.Outcome)
	assert.False(t, res.WentNotLive)
	assert.True(t, f.sess.Running())
}

func TestPollOnce_ValidationCadence(t *testing.T) {
	f := newFixture(t, 3)
	f.prober.set(true)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})

	// not live: first cycle validates, then every 500ms
	require.True(t, f.poll().Validated)
	assert.Equal(t, status.DeviceNotFound, f.sess.Reporter.Last())

	f.clock.Advance(499 * time.Millisecond)
	assert.False(t, f.poll().Validated)

	f.prober.set(false)
	f.clock.Advance(time.Millisecond)
	res := f.poll()
	require.True(t, res.Validated)
	assert.True(t, res.WentLive)

	// live: nothing until 2s
	f.clock.Advance(1500 * time.Millisecond)
	assert.False(t, f.poll().Validated)
	f.clock.Advance(500 * time.Millisecond)
	assert.True(t, f.poll().Validated)

	assert.Equal(t, 3, f.prober.probes)
}

func TestPollOnce_DeviceFoundIsSticky(t *testing.T) {
	f := newFixture(t, 3)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})
	f.poll()

	f.prober.set(true)
	f.clock.Advance(2 * time.Second)
	res := f.poll()

	// mutex lost but the device was seen: service verdict decides
	assert.Equal(t, status.ServiceNotOnline, res.Status)
	assert.True(t, res.WentNotLive)
}

func TestPollOnce_ServiceStoppedGatesDelivery(t *testing.T) {
	f := newFixture(t, 3)
	e := effect(false, 1)
	f.img.Publish(channel.EventSlot{Effect: e})
	f.poll()

	// the monitor withdraws the service while the mutex still looks held
	f.live.running = false
	res := f.poll()
	assert.Equal(t, OutcomeGated, res.Outcome)
	assert.True(t, res.WentNotLive)

	// revalidation does not reopen the gate while the service is down
	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		res = f.poll()
		require.True(t, res.Validated)
		assert.Equal(t, OutcomeGated, res.Outcome)
		assert.False(t, res.WentLive)
	}
	assert.Equal(t, []session.Notification{live(), delivered(e), notLive()}, f.rec.all())

	f.live.running = true
	res = f.poll()
	assert.True(t, res.WentLive)
	assert.Equal(t, OutcomeDelivered, res.Outcome)
}

func TestPollOnce_NoCallback(t *testing.T) {
	f := newFixture(t, 3)
	f.sess.Unregister()
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})

	assert.Equal(t, OutcomeNoCallback, f.poll().Outcome)
	assert.False(t, f.sess.Running())
}

// ---- runner ----

type fakeWaiter struct {
	ch chan struct{}
}

func (w *fakeWaiter) Wait(ctx context.Context, _ clockwork.Clock, _ time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ch:
		return nil
	}
}

func newRunFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, 3)
	p, err := New(Config{
		Interval:    time.Millisecond,
		IdleRecheck: 500 * time.Millisecond,
		LiveRecheck: 2 * time.Second,
	}, Deps{
		Source:   f.img,
		Producer: f.prober,
		Policy:   f.policy,
		Session:  f.sess,
		Clock:    clockwork.NewRealClock(),
	})
	require.NoError(t, err)
	f.p = p
	return f
}

func TestRun_WaitsForNewDataThenDelivers(t *testing.T) {
	f := newRunFixture(t)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})

	w := &fakeWaiter{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.p.Run(ctx, w)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.rec.all(), "no delivery before new data")

	close(w.ch)
	require.Eventually(t, func() bool { return len(f.rec.all()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestRun_CancelledBeforeNewData(t *testing.T) {
	f := newRunFixture(t)
	w := &fakeWaiter{ch: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		f.p.Run(ctx, w)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not observe cancellation")
	}
	assert.Empty(t, f.rec.all())
}

func TestRun_ContendedLockSkipsCycles(t *testing.T) {
	f := newRunFixture(t)
	f.img.Publish(channel.EventSlot{Effect: effect(false, 1)})

	f.sess.Lock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.p.Run(ctx, nil)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.rec.all())

	f.sess.Unlock()
	require.Eventually(t, func() bool { return len(f.rec.all()) > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestRun_ZeroIntervalStops(t *testing.T) {
	f := newFixture(t, 3)
	p, err := New(Config{IdleRecheck: time.Second, LiveRecheck: time.Second}, Deps{
		Source:   f.img,
		Producer: f.prober,
		Policy:   f.policy,
		Session:  f.sess,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero-interval poller did not stop")
	}
}
