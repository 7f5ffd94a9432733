// internal/config/normalize.go
package config

import "time"

// Defaults mirror the producer's well-known object names.
const (
	DefaultIPCDir        = "/dev/shm"
	DefaultSharedMemory  = "{A66DE3D7-B9D1-4980-9A0E-BBB4AA943535}"
	DefaultNewDataEvent  = "{91A407C5-C2B8-49FB-ABF9-88913B0B6ADD}"
	DefaultAppCountEvent = "{08983A2E-6665-42B2-9492-38D5B1F3340A}"
	DefaultProducerMutex = "{08B4F43A-DA51-4120-B388-CE0F8CE6F61A}"
	DefaultRegistryPath  = "/var/lib/chroma-broadcast/registry.db"
	DefaultProcessName   = "synapse-service"

	DefaultIntervalUs      = 33333
	DefaultIdleRecheckMs   = 500
	DefaultLiveRecheckMs   = 2000
	DefaultNewDataPollMs   = 50
	DefaultQuantumMs       = 1000
	DefaultCheckIntervalMs = 3000
	DefaultJoinTimeoutMs   = 1000
	DefaultExportTimeoutMs = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	b := &cfg.Broadcast

	setString(&b.IPCDir, DefaultIPCDir)
	setString(&b.SharedMemory, DefaultSharedMemory)
	setString(&b.NewDataEvent, DefaultNewDataEvent)
	setString(&b.AppCountEvent, DefaultAppCountEvent)
	setString(&b.ProducerMutex, DefaultProducerMutex)
	setString(&b.RegistryPath, DefaultRegistryPath)
	setString(&b.Service.ProcessName, DefaultProcessName)

	if b.Poll.IntervalUs == nil {
		v := DefaultIntervalUs
		b.Poll.IntervalUs = &v
	}
	setInt(&b.Poll.IdleRecheckMs, DefaultIdleRecheckMs)
	setInt(&b.Poll.LiveRecheckMs, DefaultLiveRecheckMs)
	setInt(&b.Poll.NewDataPollMs, DefaultNewDataPollMs)
	setInt(&b.Monitor.QuantumMs, DefaultQuantumMs)
	setInt(&b.Monitor.CheckIntervalMs, DefaultCheckIntervalMs)
	setInt(&b.JoinTimeoutMs, DefaultJoinTimeoutMs)

	// Export is opt-in; only fill its timeout when enabled.
	if cfg.Export.Endpoint != "" {
		setInt(&cfg.Export.TimeoutMs, DefaultExportTimeoutMs)

		// device_name already validated as ASCII; the status block holds 16 chars.
		if len(cfg.Export.DeviceName) > 16 {
			cfg.Export.DeviceName = cfg.Export.DeviceName[:16]
		}
	}

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "text")
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// ---- duration helpers ----

func (p PollConfig) Interval() time.Duration {
	if p.IntervalUs == nil {
		return DefaultIntervalUs * time.Microsecond
	}
	return time.Duration(*p.IntervalUs) * time.Microsecond
}

func (p PollConfig) IdleRecheck() time.Duration {
	return time.Duration(p.IdleRecheckMs) * time.Millisecond
}

func (p PollConfig) LiveRecheck() time.Duration {
	return time.Duration(p.LiveRecheckMs) * time.Millisecond
}

func (p PollConfig) NewDataPoll() time.Duration {
	return time.Duration(p.NewDataPollMs) * time.Millisecond
}

func (m MonitorConfig) Quantum() time.Duration {
	return time.Duration(m.QuantumMs) * time.Millisecond
}

func (m MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalMs) * time.Millisecond
}

func (b BroadcastConfig) JoinTimeout() time.Duration {
	return time.Duration(b.JoinTimeoutMs) * time.Millisecond
}

func (e ExportConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}
