// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	b := cfg.Broadcast

	// ------------------------------------------------------------
	// OBJECT NAMES (single path element inside ipc_dir)
	// ------------------------------------------------------------

	names := map[string]string{
		"shared_memory":   b.SharedMemory,
		"new_data_event":  b.NewDataEvent,
		"app_count_event": b.AppCountEvent,
		"producer_mutex":  b.ProducerMutex,
	}
	for field, name := range names {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("broadcast.%s %q: must not contain path separators", field, name)
		}
	}

	// ------------------------------------------------------------
	// TIMINGS
	// ------------------------------------------------------------

	if b.Poll.IntervalUs != nil && *b.Poll.IntervalUs < 0 {
		return fmt.Errorf("broadcast.poll.interval_us must be >= 0")
	}

	ints := []struct {
		field string
		v     int
	}{
		{"broadcast.poll.idle_recheck_ms", b.Poll.IdleRecheckMs},
		{"broadcast.poll.live_recheck_ms", b.Poll.LiveRecheckMs},
		{"broadcast.poll.new_data_poll_ms", b.Poll.NewDataPollMs},
		{"broadcast.monitor.quantum_ms", b.Monitor.QuantumMs},
		{"broadcast.monitor.check_interval_ms", b.Monitor.CheckIntervalMs},
		{"broadcast.join_timeout_ms", b.JoinTimeoutMs},
		{"export.timeout_ms", cfg.Export.TimeoutMs},
	}
	for _, c := range ints {
		if c.v < 0 {
			return fmt.Errorf("%s must be >= 0", c.field)
		}
	}

	// Idle rechecks exist to recover faster than the steady-state cadence.
	if b.Poll.IdleRecheckMs > 0 && b.Poll.LiveRecheckMs > 0 &&
		b.Poll.IdleRecheckMs > b.Poll.LiveRecheckMs {
		return fmt.Errorf(
			"broadcast.poll.idle_recheck_ms (%d) must not exceed live_recheck_ms (%d)",
			b.Poll.IdleRecheckMs,
			b.Poll.LiveRecheckMs,
		)
	}

	// ------------------------------------------------------------
	// APP IDENTITY
	// ------------------------------------------------------------

	a := cfg.App
	if a.GUID != "" {
		if _, err := uuid.Parse(a.GUID); err != nil {
			return fmt.Errorf("app.guid %q: %w", a.GUID, err)
		}
	} else {
		if strings.TrimSpace(a.Title) == "" {
			return fmt.Errorf("app: either guid or title is required")
		}
		if a.Index < 0 {
			return fmt.Errorf("app.index must be >= 0")
		}
	}
	if strings.ContainsAny(a.Title, `/\`) {
		return fmt.Errorf("app.title %q: must not contain path separators", a.Title)
	}

	// ------------------------------------------------------------
	// STATUS EXPORT (OPT-IN)
	// ------------------------------------------------------------

	e := cfg.Export
	for i := 0; i < len(e.DeviceName); i++ {
		if e.DeviceName[i] > 0x7F {
			return fmt.Errorf("export.device_name must contain ASCII characters only")
		}
	}
	if e.Endpoint == "" && (e.DeviceName != "" || e.BaseSlot != 0) {
		return fmt.Errorf("export: device_name/base_slot set but no endpoint is defined")
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text|json", cfg.Log.Format)
	}

	return nil
}
