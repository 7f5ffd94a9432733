// internal/liveness/service.go
package liveness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ServiceState is the verdict of one service manager query.
type ServiceState uint8

const (
	StateUnknown ServiceState = iota
	StateRunning
	StateNotInstalledOrStopped
)

func (s ServiceState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateNotInstalledOrStopped:
		return "not_installed_or_stopped"
	default:
		return "unknown"
	}
}

// Service is what a ServiceManager knows about the producer service.
type Service struct {
	State     ServiceState
	Installed bool
}

// ServiceManager answers whether the producer service is installed and running.
type ServiceManager interface {
	Query(ctx context.Context) (Service, error)
}

// ---- process table ----

// ProcessServiceManager scans the process table for ProcessName.
// Installed means Executable exists on disk, or the process was found.
type ProcessServiceManager struct {
	ProcessName string
	Executable  string

	// processes is swapped in tests.
	processes func(ctx context.Context) ([]*process.Process, error)
}

func NewProcessServiceManager(processName, executable string) *ProcessServiceManager {
	return &ProcessServiceManager{
		ProcessName: processName,
		Executable:  executable,
		processes:   process.ProcessesWithContext,
	}
}

func (m *ProcessServiceManager) Query(ctx context.Context) (Service, error) {
	if m.ProcessName == "" {
		return Service{}, errors.New("liveness: process name not configured")
	}

	svc := Service{State: StateNotInstalledOrStopped, Installed: m.executablePresent()}

	list := m.processes
	if list == nil {
		list = process.ProcessesWithContext
	}
	procs, err := list(ctx)
	if err != nil {
		return Service{Installed: svc.Installed}, fmt.Errorf("liveness: list processes: %w", err)
	}

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited between listing and inspection
			continue
		}
		if m.matches(name) {
			running, err := p.IsRunningWithContext(ctx)
			if err != nil || !running {
				continue
			}
			svc.State = StateRunning
			svc.Installed = true
			return svc, nil
		}
	}
	return svc, nil
}

func (m *ProcessServiceManager) matches(name string) bool {
	return strings.EqualFold(name, m.ProcessName) ||
		strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), m.ProcessName)
}

func (m *ProcessServiceManager) executablePresent() bool {
	if m.Executable == "" {
		return false
	}
	st, err := os.Stat(m.Executable)
	return err == nil && !st.IsDir()
}
