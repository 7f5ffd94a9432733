package status

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func healthy() Inputs {
	return Inputs{
		DeviceFound:      true,
		MutexReachable:   true,
		FeatureEnabled:   true,
		AppEnabled:       true,
		ServiceInstalled: true,
		ServiceRunning:   true,
	}
}

func TestClassify_Healthy(t *testing.T) {
	if got := Classify(healthy()); got != Success {
		t.Fatalf("got %s, want success", got)
	}
}

func TestClassify_EachRuleInIsolation(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Inputs)
		want Code
	}{
		{"device", func(in *Inputs) { in.DeviceFound = false }, DeviceNotFound},
		{"feature", func(in *Inputs) { in.FeatureEnabled = false }, FeatureDisabled},
		{"app", func(in *Inputs) { in.AppEnabled = false }, AppDisabled},
		{"online", func(in *Inputs) { in.MutexReachable = false }, ServiceNotOnline},
		{"installed", func(in *Inputs) {
			in.MutexReachable = false
			in.ServiceRunning = false
			in.ServiceInstalled = false
		}, ServiceNotInstalled},
		{"running", func(in *Inputs) {
			in.MutexReachable = false
			in.ServiceRunning = false
		}, ServiceNotRunning},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := healthy()
			tc.mut(&in)
			if got := Classify(in); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassify_MonitorVerdictBeatsFlags(t *testing.T) {
	// service down while a stale mutex still reads reachable
	in := healthy()
	in.ServiceKnown = true
	in.ServiceRunning = false
	if got := Classify(in); got != ServiceNotRunning {
		t.Fatalf("got %s, want service_not_running", got)
	}

	in.ServiceInstalled = false
	in.AppEnabled = false
	if got := Classify(in); got != ServiceNotInstalled {
		t.Fatalf("got %s, want service_not_installed", got)
	}

	// never-seen device still wins
	in.DeviceFound = false
	if got := Classify(in); got != DeviceNotFound {
		t.Fatalf("got %s, want device_not_found", got)
	}

	// a running service leaves the flag rules in charge
	in = healthy()
	in.ServiceKnown = true
	in.FeatureEnabled = false
	if got := Classify(in); got != FeatureDisabled {
		t.Fatalf("got %s, want feature_disabled", got)
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// everything wrong: device-not-found wins
	if got := Classify(Inputs{}); got != DeviceNotFound {
		t.Fatalf("got %s, want device_not_found", got)
	}

	// feature beats app
	in := healthy()
	in.FeatureEnabled = false
	in.AppEnabled = false
	if got := Classify(in); got != FeatureDisabled {
		t.Fatalf("got %s, want feature_disabled", got)
	}

	// flags are irrelevant once the mutex is gone
	in = healthy()
	in.MutexReachable = false
	in.FeatureEnabled = false
	if got := Classify(in); got != ServiceNotOnline {
		t.Fatalf("got %s, want service_not_online", got)
	}
}

func TestReporter_SuppressesRepeats(t *testing.T) {
	var buf bytes.Buffer
	var changes []Code
	r := NewReporter(slog.New(slog.NewTextHandler(&buf, nil)), func(c Code) {
		changes = append(changes, c)
	})

	if r.Report(Success) {
		t.Fatalf("initial success should be suppressed")
	}
	if !r.Report(AppDisabled) {
		t.Fatalf("first app_disabled should log")
	}
	if r.Report(AppDisabled) {
		t.Fatalf("repeat app_disabled should be suppressed")
	}
	if !r.Report(Success) {
		t.Fatalf("recovery should log")
	}

	if n := strings.Count(buf.String(), "broadcast status"); n != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", n, buf.String())
	}
	if len(changes) != 2 || changes[0] != AppDisabled || changes[1] != Success {
		t.Fatalf("unexpected changes: %v", changes)
	}
	if r.Last() != Success {
		t.Fatalf("last = %s", r.Last())
	}
}

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{Live: true, Code: ServiceNotOnline, SecondsNotLive: 9, ConsumerIndex: 4})

	if len(regs) != SlotsPerBlock {
		t.Fatalf("expected %d regs, got %d", SlotsPerBlock, len(regs))
	}
	if regs[SlotLive] != 1 || regs[SlotStatusCode] != 4 || regs[SlotSecondsNotLive] != 9 || regs[SlotConsumerIndex] != 4 {
		t.Fatalf("unexpected block: %v", regs)
	}
	for i := SlotReservedStart; i <= SlotDeviceNameEnd; i++ {
		if regs[i] != 0 {
			t.Fatalf("slot %d should be zero, got %d", i, regs[i])
		}
	}
}
