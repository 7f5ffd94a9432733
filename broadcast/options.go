package broadcast

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/broadcast-bridge/internal/config"
	"github.com/tamzrod/broadcast-bridge/internal/liveness"
)

// Options configure an Engine. Zero values take the defaults of the
// config package.
type Options struct {
	IPCDir        string
	SharedMemory  string
	NewDataEvent  string
	AppCountEvent string
	ProducerMutex string
	RegistryPath  string

	// ServiceProcess and ServiceExecutable configure the default
	// process-table service manager.
	ServiceProcess    string
	ServiceExecutable string
	// ServiceManager overrides the process-table service manager.
	ServiceManager liveness.ServiceManager

	// AppPath is recorded in the registration store. Empty means the
	// current executable.
	AppPath string

	// PollInterval is the cycle budget. Negative disables the sleep.
	PollInterval    time.Duration
	IdleRecheck     time.Duration
	LiveRecheck     time.Duration
	NewDataPoll     time.Duration
	MonitorQuantum  time.Duration
	ServiceInterval time.Duration
	JoinTimeout     time.Duration

	Clock      clockwork.Clock
	Log        *slog.Logger
	Registerer prometheus.Registerer
}

// OptionsFromConfig maps a normalized config section onto Options.
func OptionsFromConfig(b config.BroadcastConfig) Options {
	o := Options{
		IPCDir:            b.IPCDir,
		SharedMemory:      b.SharedMemory,
		NewDataEvent:      b.NewDataEvent,
		AppCountEvent:     b.AppCountEvent,
		ProducerMutex:     b.ProducerMutex,
		RegistryPath:      b.RegistryPath,
		ServiceProcess:    b.Service.ProcessName,
		ServiceExecutable: b.Service.Executable,
		PollInterval:      b.Poll.Interval(),
		IdleRecheck:       b.Poll.IdleRecheck(),
		LiveRecheck:       b.Poll.LiveRecheck(),
		NewDataPoll:       b.Poll.NewDataPoll(),
		MonitorQuantum:    b.Monitor.Quantum(),
		ServiceInterval:   b.Monitor.CheckInterval(),
		JoinTimeout:       b.JoinTimeout(),
	}
	if o.PollInterval == 0 {
		o.PollInterval = -1
	}
	return o
}

func (o Options) withDefaults() Options {
	setString(&o.IPCDir, config.DefaultIPCDir)
	setString(&o.SharedMemory, config.DefaultSharedMemory)
	setString(&o.NewDataEvent, config.DefaultNewDataEvent)
	setString(&o.AppCountEvent, config.DefaultAppCountEvent)
	setString(&o.ProducerMutex, config.DefaultProducerMutex)
	setString(&o.RegistryPath, config.DefaultRegistryPath)
	setString(&o.ServiceProcess, config.DefaultProcessName)

	switch {
	case o.PollInterval < 0:
		o.PollInterval = 0
	case o.PollInterval == 0:
		o.PollInterval = config.DefaultIntervalUs * time.Microsecond
	}
	setDuration(&o.IdleRecheck, config.DefaultIdleRecheckMs*time.Millisecond)
	setDuration(&o.LiveRecheck, config.DefaultLiveRecheckMs*time.Millisecond)
	setDuration(&o.NewDataPoll, config.DefaultNewDataPollMs*time.Millisecond)
	setDuration(&o.MonitorQuantum, config.DefaultQuantumMs*time.Millisecond)
	setDuration(&o.ServiceInterval, config.DefaultCheckIntervalMs*time.Millisecond)
	setDuration(&o.JoinTimeout, config.DefaultJoinTimeoutMs*time.Millisecond)

	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.ServiceManager == nil {
		o.ServiceManager = liveness.NewProcessServiceManager(o.ServiceProcess, o.ServiceExecutable)
	}
	return o
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst <= 0 {
		*dst = def
	}
}
