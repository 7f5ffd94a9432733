package liveness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/broadcast-bridge/internal/session"
	"github.com/tamzrod/broadcast-bridge/internal/status"
)

type fakeManager struct {
	mu      sync.Mutex
	svc     Service
	err     error
	queries int
}

func (f *fakeManager) Query(context.Context) (Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.svc, f.err
}

func (f *fakeManager) set(svc Service, err error) {
	f.mu.Lock()
	f.svc, f.err = svc, err
	f.mu.Unlock()
}

func (f *fakeManager) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

type fakeProber struct{ err error }

func (f fakeProber) Probe() error { return f.err }

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

func newMonitor(t *testing.T, mgr ServiceManager, prober Prober, clock clockwork.Clock) (*Monitor, *session.Session) {
	t.Helper()
	sess := session.New(2, "Sample", status.NewReporter(nil, nil), clock)
	m, err := New(Config{Quantum: time.Second, CheckInterval: 3 * time.Second}, Deps{
		Manager:  mgr,
		Producer: prober,
		Session:  sess,
		Reporter: sess.Reporter,
		Clock:    clock,
	})
	require.NoError(t, err)
	return m, sess
}

// goLive drives the session to the live state the way the poller does.
func goLive(sess *session.Session) {
	sess.Lock()
	sess.SetLiveLocked(true)
	sess.Unlock()
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, Deps{})
	require.Error(t, err)

	_, err = New(Config{Quantum: time.Second, CheckInterval: time.Second}, Deps{})
	require.Error(t, err)
}

func TestCheckOnce_RunningAndOnline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateRunning, Installed: true}}
	m, sess := newMonitor(t, mgr, fakeProber{}, clock)
	rec := &recorder{}
	sess.Register(rec.callback)
	goLive(sess)

	assert.Equal(t, StateRunning, m.CheckOnce(context.Background()))

	st := m.State()
	assert.True(t, st.ServiceInstalled)
	assert.True(t, st.ServiceRunning)
	assert.True(t, st.ChannelReachable)
	assert.Equal(t, clock.Now(), st.LastCheck)
	assert.Equal(t, status.Success, sess.Reporter.Last())
	assert.True(t, sess.Running())
}

func TestCheckOnce_RunningButNotOnlineKeepsLive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateRunning, Installed: true}}
	m, sess := newMonitor(t, mgr, fakeProber{err: errors.New("absent")}, clock)
	rec := &recorder{}
	sess.Register(rec.callback)
	goLive(sess)

	m.CheckOnce(context.Background())

	assert.Equal(t, status.ServiceNotOnline, sess.Reporter.Last())
	assert.False(t, m.State().ChannelReachable)
	assert.True(t, m.ServiceRunning())
	assert.True(t, sess.Running())
	assert.Len(t, rec.all(), 1) // only the Live from goLive
}

func TestCheckOnce_StoppedEmitsOneNotLive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateNotInstalledOrStopped, Installed: true}}
	m, sess := newMonitor(t, mgr, fakeProber{}, clock)
	rec := &recorder{}
	sess.Register(rec.callback)
	goLive(sess)

	m.CheckOnce(context.Background())
	m.CheckOnce(context.Background())

	assert.Equal(t, status.ServiceNotRunning, sess.Reporter.Last())
	assert.False(t, m.ServiceRunning())
	assert.False(t, sess.Running())
	assert.Equal(t, []session.Notification{
		{Type: session.StatusNotification, State: session.Live},
		{Type: session.StatusNotification, State: session.NotLive},
	}, rec.all())
}

func TestCheckOnce_NotInstalled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateNotInstalledOrStopped}}
	m, sess := newMonitor(t, mgr, fakeProber{}, clock)

	m.CheckOnce(context.Background())

	assert.Equal(t, status.ServiceNotInstalled, sess.Reporter.Last())
	assert.False(t, m.ServiceInstalled())
}

func TestCheckOnce_QueryErrorCountsAsStopped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{err: errors.New("no process table")}
	m, sess := newMonitor(t, mgr, fakeProber{}, clock)
	rec := &recorder{}
	sess.Register(rec.callback)
	goLive(sess)

	assert.Equal(t, StateNotInstalledOrStopped, m.CheckOnce(context.Background()))
	assert.False(t, sess.Running())
	assert.Equal(t, status.ServiceNotInstalled, sess.Reporter.Last())
}

func TestCheckOnce_NoCallbackNoNotification(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateNotInstalledOrStopped, Installed: true}}
	m, sess := newMonitor(t, mgr, fakeProber{}, clock)

	m.CheckOnce(context.Background())
	assert.False(t, sess.Running())
	assert.False(t, sess.Registered())
}

func TestCheckOnce_WithoutReporterOnlyWithdrawsLive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateNotInstalledOrStopped, Installed: true}}
	sess := session.New(2, "Sample", status.NewReporter(nil, nil), clock)
	m, err := New(Config{Quantum: time.Second, CheckInterval: 3 * time.Second}, Deps{
		Manager:  mgr,
		Producer: fakeProber{},
		Session:  sess,
		Clock:    clock,
	})
	require.NoError(t, err)

	rec := &recorder{}
	sess.Register(rec.callback)
	goLive(sess)

	m.CheckOnce(context.Background())

	assert.Equal(t, status.Success, sess.Reporter.Last())
	assert.False(t, m.ServiceRunning())
	assert.False(t, sess.Running())
	assert.Len(t, rec.all(), 2)
}

func TestRun_ChecksEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := &fakeManager{svc: Service{State: StateRunning, Installed: true}}
	m, _ := newMonitor(t, mgr, fakeProber{}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	tick := func() {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	// first quantum: never checked, so due
	tick()
	require.Eventually(t, func() bool { return mgr.count() == 1 }, time.Second, time.Millisecond)

	// two more quanta: 2s since the check
	tick()
	tick()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, mgr.count())

	// third quantum reaches 3s
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return mgr.count() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestProcessServiceManager_Installed(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "synapse-service")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	m := NewProcessServiceManager("no-such-process-name-for-tests", exe)
	svc, err := m.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNotInstalledOrStopped, svc.State)
	assert.True(t, svc.Installed)

	m = NewProcessServiceManager("no-such-process-name-for-tests", filepath.Join(dir, "missing"))
	svc, err = m.Query(context.Background())
	require.NoError(t, err)
	assert.False(t, svc.Installed)
}

func TestProcessServiceManager_FindsSelf(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)

	m := NewProcessServiceManager(filepath.Base(self), "")
	svc, err := m.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRunning, svc.State)
	assert.True(t, svc.Installed)
}

func TestProcessServiceManager_RequiresName(t *testing.T) {
	_, err := NewProcessServiceManager("", "").Query(context.Background())
	require.Error(t, err)
}
