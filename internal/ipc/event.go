package ipc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sys/unix"
)

// Event file layout.
const (
	eventSize     = 8
	offSignaled   = 0
	offGeneration = 4
)

// Event is a named manual-reset event. It stays signaled until Reset.
// Pulse wakes current waiters without leaving the event signaled.
type Event struct {
	path string
	f    *os.File
}

// CreateEvent opens the event dir/name, creating it unsignaled when absent.
// An existing event keeps its state.
func CreateEvent(dir, name string) (*Event, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("ipc: create event %s: %w", path, err)
	}

	e := &Event{path: path, f: f}
	err = e.locked(func() error {
		st, err := f.Stat()
		if err != nil {
			return err
		}
		if st.Size() < eventSize {
			return f.Truncate(eventSize)
		}
		return nil
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ipc: init event %s: %w", path, err)
	}
	return e, nil
}

// OpenEvent opens an existing event. Absence returns ErrAbsent.
func OpenEvent(dir, name string) (*Event, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("ipc: open event %s: %w", path, err)
	}
	return &Event{path: path, f: f}, nil
}

func (e *Event) Path() string { return e.path }

// Close releases the handle. The event itself persists.
func (e *Event) Close() error {
	if e == nil || e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	return err
}

// Set signals the event.
func (e *Event) Set() error {
	return e.locked(func() error { return e.writeWord(offSignaled, 1) })
}

// Reset clears the signal.
func (e *Event) Reset() error {
	return e.locked(func() error { return e.writeWord(offSignaled, 0) })
}

// Pulse releases everyone waiting for the next generation and leaves the
// event unsignaled.
func (e *Event) Pulse() error {
	return e.locked(func() error {
		gen, err := e.readWord(offGeneration)
		if err != nil {
			return err
		}
		if err := e.writeWord(offGeneration, gen+1); err != nil {
			return err
		}
		return e.writeWord(offSignaled, 0)
	})
}

// Signaled reports the current state.
func (e *Event) Signaled() (bool, error) {
	v, err := e.readWord(offSignaled)
	return v != 0, err
}

// Generation returns the pulse counter.
func (e *Event) Generation() (uint32, error) {
	return e.readWord(offGeneration)
}

// Wait blocks until the event is signaled or pulsed, or ctx is done.
// The file is sampled every poll interval on clock.
func (e *Event) Wait(ctx context.Context, clock clockwork.Clock, poll time.Duration) error {
	start, err := e.Generation()
	if err != nil {
		return err
	}

	ticker := clock.NewTicker(poll)
	defer ticker.Stop()

	for {
		on, err := e.Signaled()
		if err != nil {
			return err
		}
		if on {
			return nil
		}
		gen, err := e.Generation()
		if err != nil {
			return err
		}
		if gen != start {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// ---- file access ----

func (e *Event) locked(fn func() error) error {
	if e.f == nil {
		return fmt.Errorf("ipc: event %s closed", e.path)
	}
	fd := int(e.f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return fmt.Errorf("ipc: lock event %s: %w", e.path, err)
	}
	defer unix.Flock(fd, unix.LOCK_UN)
	return fn()
}

func (e *Event) readWord(off int64) (uint32, error) {
	if e.f == nil {
		return 0, fmt.Errorf("ipc: event %s closed", e.path)
	}
	var b [4]byte
	if _, err := e.f.ReadAt(b[:], off); err != nil {
		return 0, fmt.Errorf("ipc: read event %s: %w", e.path, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (e *Event) writeWord(off int64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := e.f.WriteAt(b[:], off); err != nil {
		return fmt.Errorf("ipc: write event %s: %w", e.path, err)
	}
	return nil
}
