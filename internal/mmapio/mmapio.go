// Package mmapio opens on-disk artifacts as memory-mapped byte slices.
//
// The teacher package (FlashLog's segment writers) never memory-maps a
// file; it streams through a plain *os.File and calls Sync. This package
// is enriched from elsewhere in the retrieval pack: calvinalkan/agent-task's
// pkg/slotcache opens, grows, and memory-maps an on-disk array with raw
// syscall.Mmap/syscall.Munmap and a truncate-to-grow policy. This package
// adapts that same open/grow/close shape onto golang.org/x/sys/unix, which
// is the dependency the wider pack reaches for when mmap needs to be
// portable across Darwin and Linux (rybkr-gitvista, ivoronin-dupedog, and
// janpfeifer-go-highway all carry it), and which additionally exposes the
// Madvise flags the spec's "Memory advice" section calls for.
package mmapio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a memory-mapped on-disk artifact.
//
// The zero value is not usable; obtain one via Create or OpenReadOnly.
type File struct {
	f        *os.File
	data     []byte
	writable bool
	path     string
}

// Create truncates (creating if necessary) the file at path to size bytes
// and maps it PROT_READ|PROT_WRITE, MAP_SHARED.
//
// Used for the index, update log, and rank-map artifacts, all of which are
// sized as a function of the source length up front (§5).
func Create(path string, size int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapio: create %q: %w", path, err)
	}

	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("mmapio: truncate %q to %d: %w", path, size, err)
		}
	}

	data, err := mapShared(f, size)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapio: mmap %q: %w", path, err)
	}

	return &File{f: f, data: data, writable: true, path: path}, nil
}

// OpenReadOnly maps an existing file PROT_READ, MAP_SHARED, and advises the
// kernel that access will be sequential (the source file is read front to
// back by each Stage H worker over its own slab, and again by Stage E;
// duplicate-verification re-reads in Stage E are the one exception called
// out as an open question in §9).
func OpenReadOnly(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapio: open %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapio: stat %q: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		return &File{f: f, data: nil, writable: false, path: path}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapio: mmap %q: %w", path, err)
	}

	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &File{f: f, data: data, writable: false, path: path}, nil
}

func mapShared(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Bytes returns the mapped region. It is invalidated by Grow and Close.
func (mf *File) Bytes() []byte {
	return mf.data
}

// AdviseHugePage hints that the mapping may benefit from huge-page backing,
// used for the rank-map mapping during the Apply sweep (§5's memory
// advice). Best-effort: the kernel may ignore it, and failure is not
// reported.
func (mf *File) AdviseHugePage() {
	if len(mf.data) == 0 {
		return
	}

	_ = unix.Madvise(mf.data, unix.MADV_HUGEPAGE)
}

// Grow unmaps, truncates the backing file to newSize, and remaps.
//
// Used by the restorer's output mapping (§4.7): on overflow the capacity is
// doubled via truncate+remap before the write that would have overflowed.
func (mf *File) Grow(newSize int64) error {
	if !mf.writable {
		return fmt.Errorf("mmapio: %q is not writable", mf.path)
	}

	if len(mf.data) > 0 {
		if err := unix.Munmap(mf.data); err != nil {
			return fmt.Errorf("mmapio: munmap %q: %w", mf.path, err)
		}

		mf.data = nil
	}

	if err := mf.f.Truncate(newSize); err != nil {
		return fmt.Errorf("mmapio: truncate %q to %d: %w", mf.path, newSize, err)
	}

	data, err := mapShared(mf.f, newSize)
	if err != nil {
		return fmt.Errorf("mmapio: remap %q: %w", mf.path, err)
	}

	mf.data = data

	return nil
}

// Truncate unmaps the region and sets the backing file to size bytes
// without remapping; Bytes returns nil afterwards. The pipeline's restorer
// does not use it: it shrinks its output with Grow and a final os.Truncate.
func (mf *File) Truncate(size int64) error {
	if len(mf.data) > 0 {
		if err := unix.Munmap(mf.data); err != nil {
			return fmt.Errorf("mmapio: munmap %q: %w", mf.path, err)
		}

		mf.data = nil
	}

	if err := mf.f.Truncate(size); err != nil {
		return fmt.Errorf("mmapio: final truncate %q to %d: %w", mf.path, size, err)
	}

	return nil
}

// Close unmaps (if still mapped) and closes the underlying file.
//
// Idempotent.
func (mf *File) Close() error {
	var err error

	if len(mf.data) > 0 {
		err = unix.Munmap(mf.data)
		mf.data = nil
	}

	if mf.f != nil {
		if cerr := mf.f.Close(); cerr != nil && err == nil {
			err = cerr
		}

		mf.f = nil
	}

	return err
}

// Unlink removes the backing file from disk. Intended to be called after
// Close for temp artifacts that don't outlive the pipeline run (the update
// log always; the index and rank-map depending on retention policy, §3).
func (mf *File) Unlink() error {
	if err := os.Remove(mf.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("mmapio: unlink %q: %w", mf.path, err)
	}

	return nil
}
