package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Mutex is a named mutual-exclusion object owned by another process.
type Mutex struct {
	path string
}

// NewMutex names the lock file dir/name. Nothing is opened.
func NewMutex(dir, name string) *Mutex {
	return &Mutex{path: filepath.Join(dir, name)}
}

func (m *Mutex) Path() string { return m.path }

// Probe reports whether a live owner holds the mutex. A missing file, or a
// file nobody holds (left behind by an owner that died), returns ErrAbsent.
func (m *Mutex) Probe() error {
	f, err := os.Open(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrAbsent
	}
	if err != nil {
		return fmt.Errorf("ipc: open mutex %s: %w", m.path, err)
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_SH|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil
		}
		return fmt.Errorf("ipc: acquire mutex %s: %w", m.path, err)
	}
	// acquired: no owner
	_ = unix.Flock(fd, unix.LOCK_UN)
	return ErrAbsent
}

// Hold creates the mutex and takes it exclusively, the way the producer
// does while it is online. The returned release func removes it.
func (m *Mutex) Hold() (release func() error, err error) {
	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("ipc: create mutex %s: %w", m.path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ipc: hold mutex %s: %w", m.path, err)
	}

	return func() error {
		rmErr := os.Remove(m.path)
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return errors.Join(rmErr, f.Close())
	}, nil
}
