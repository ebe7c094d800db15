// Package filetable implements the open-file table: a fixed array of
// descriptor slots, each binding a directory entry, an access mode and a
// cursor.
//
// Locking: the table lock guards claiming and releasing slots. The used flag
// and the bound entry are written while holding both the table lock and the
// slot lock, so either lock is enough to read them. The cursor is guarded by
// the slot lock alone.
package filetable

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/rsfs/internal/dir"
)

var (
	// ErrBadDescriptor is returned for an out-of-range or unused descriptor.
	ErrBadDescriptor = errors.New("bad file descriptor")

	// ErrTableFull is returned when every slot is in use.
	ErrTableFull = errors.New("open file table full")

	// ErrRemoved is returned when claiming a slot for an unlinked entry.
	ErrRemoved = errors.New("entry removed")
)

// Mode is the access mode of a descriptor.
type Mode int

const (
	// ReadOnly permits read and seek.
	ReadOnly Mode = iota
	// ReadWrite additionally permits append, write and cut.
	ReadWrite
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ReadOnly || m == ReadWrite }

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Entry is one descriptor slot.
type Entry struct {
	mu   sync.Mutex
	used bool
	file *dir.Entry
	mode Mode
	pos  int
}

func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// Used reports whether the slot is claimed.
func (e *Entry) Used() bool { return e.used }

// File returns the bound directory entry.
func (e *Entry) File() *dir.Entry { return e.file }

// Mode returns the access mode.
func (e *Entry) Mode() Mode { return e.mode }

// Position returns the cursor. The slot lock must be held.
func (e *Entry) Position() int { return e.pos }

// SetPosition moves the cursor. The slot lock must be held.
func (e *Entry) SetPosition(pos int) { e.pos = pos }

// Table is the fixed-size open-file table.
type Table struct {
	mu      sync.Mutex
	entries []*Entry
	used    int
}

// New creates a table with n slots.
func New(n int) (*Table, error) {
	if n <= 0 {
		return nil, fmt.Errorf("file table: invalid size %d", n)
	}
	entries := make([]*Entry, n)
	for i := range entries {
		entries[i] = &Entry{}
	}
	return &Table{entries: entries}, nil
}

func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }

// Claim binds the lowest free slot to file with the given mode and a zero
// cursor, returning the slot index.
func (t *Table) Claim(file *dir.Entry, mode Mode) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if file.Removed() {
		return -1, ErrRemoved
	}

	for fd, e := range t.entries {
		if e.used {
			continue
		}
		e.mu.Lock()
		e.used = true
		e.file = file
		e.mode = mode
		e.pos = 0
		e.mu.Unlock()

		t.used++
		return fd, nil
	}
	return -1, ErrTableFull
}

// Acquire returns slot fd with its lock held. The caller must Unlock it.
func (t *Table) Acquire(fd int) (*Entry, error) {
	if fd < 0 || fd >= len(t.entries) {
		return nil, fmt.Errorf("%w: %d", ErrBadDescriptor, fd)
	}
	e := t.entries[fd]
	e.mu.Lock()
	if !e.used {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrBadDescriptor, fd)
	}
	return e, nil
}

// Release frees slot fd and returns the entry and mode it was bound to.
// It waits for any in-flight operation on the descriptor to finish.
func (t *Table) Release(fd int) (*dir.Entry, Mode, error) {
	if fd < 0 || fd >= len(t.entries) {
		return nil, 0, fmt.Errorf("%w: %d", ErrBadDescriptor, fd)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[fd]
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.used {
		return nil, 0, fmt.Errorf("%w: %d", ErrBadDescriptor, fd)
	}

	file, mode := e.file, e.mode
	e.used = false
	e.file = nil
	e.pos = 0
	t.used--
	return file, mode, nil
}

// IsOpenLocked reports whether any claimed slot references inode ino.
// The table lock must be held.
func (t *Table) IsOpenLocked(ino int) bool {
	for _, e := range t.entries {
		if e.used && e.file.Inode() == ino {
			return true
		}
	}
	return false
}

// Used returns the number of claimed slots.
func (t *Table) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.entries) }

// OpenInodes returns the inode number of every claimed slot, one per slot.
func (t *Table) OpenInodes() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]int, 0, t.used)
	for _, e := range t.entries {
		if e.used {
			out = append(out, e.file.Inode())
		}
	}
	return out
}
