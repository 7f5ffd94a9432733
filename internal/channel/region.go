// internal/channel/region.go
package channel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Region is an attached shared region: the backing file plus its mapping.
// Close releases both; it is safe to call more than once.
type Region struct {
	View

	mu      sync.Mutex
	path    string
	f       *os.File
	mem     []byte
	created bool
}

// OpenOrCreate attaches to the region file name inside dir. If the file
// does not exist it is created with exactly Size bytes and zeroed.
func OpenOrCreate(dir, name string) (*Region, error) {
	path := filepath.Join(dir, name)

	created := false
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		if errors.Is(err, fs.ErrExist) {
			// lost the create race to another consumer or the producer
			f, err = os.OpenFile(path, os.O_RDWR, 0)
		} else if err == nil {
			created = true
		}
	}
	if err != nil {
		return nil, fmt.Errorf("channel: open %s: %w", path, err)
	}

	if created {
		if err := f.Truncate(Size); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("channel: size %s: %w", path, err)
		}
	} else {
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("channel: stat %s: %w", path, err)
		}
		if st.Size() < Size {
			_ = f.Close()
			return nil, fmt.Errorf("channel: %s is %d bytes, want %d", path, st.Size(), Size)
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("channel: map %s: %w", path, err)
	}

	if created {
		clear(mem)
	}

	view, err := NewView(mem)
	if err != nil {
		_ = unix.Munmap(mem)
		_ = f.Close()
		return nil, err
	}

	return &Region{
		View:    view,
		path:    path,
		f:       f,
		mem:     mem,
		created: created,
	}, nil
}

// Path returns the backing file path.
func (r *Region) Path() string { return r.path }

// Created reports whether this call created the region.
func (r *Region) Created() bool { return r.created }

// Mapped reports whether the view is still mapped.
func (r *Region) Mapped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mem != nil
}

// Close unmaps the view and closes the handle.
func (r *Region) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			errs = append(errs, fmt.Errorf("channel: unmap: %w", err))
		}
		r.mem = nil
		r.View = View{}
	}
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("channel: close: %w", err))
		}
		r.f = nil
	}
	return errors.Join(errs...)
}
