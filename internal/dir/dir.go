// Package dir implements the flat namespace: an insertion-ordered map from
// file name to inode number guarded by a single lock.
package dir

import (
	"container/list"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrExists is returned when inserting a name that is already present.
	ErrExists = errors.New("entry exists")

	// ErrNotFound is returned when removing a name that is absent.
	ErrNotFound = errors.New("entry not found")
)

// Entry binds a file name to its inode.
type Entry struct {
	name    string
	inode   int
	removed atomic.Bool
}

// Name returns the file name.
func (e *Entry) Name() string { return e.name }

// Inode returns the inode number.
func (e *Entry) Inode() int { return e.inode }

// Removed reports whether the entry has been unlinked from the directory.
// An entry is never re-linked once removed.
func (e *Entry) Removed() bool { return e.removed.Load() }

// Directory is the namespace.
//
// Lookup, Insert, Remove and Range take the lock themselves. Callers that need
// a lookup and a mutation to be atomic hold Lock and use the *Locked variants.
type Directory struct {
	mu      sync.RWMutex
	order   *list.List // of *Entry, in insertion order
	entries map[string]*list.Element
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (d *Directory) Lock()   { d.mu.Lock() }
func (d *Directory) Unlock() { d.mu.Unlock() }

// Lookup returns the entry for name, or nil.
func (d *Directory) Lookup(name string) *Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.LookupLocked(name)
}

// LookupLocked is Lookup for callers holding the lock.
func (d *Directory) LookupLocked(name string) *Entry {
	if el, ok := d.entries[name]; ok {
		return el.Value.(*Entry)
	}
	return nil
}

// InsertLocked appends a new entry at the tail. The lock must be held.
func (d *Directory) InsertLocked(name string, ino int) (*Entry, error) {
	if _, ok := d.entries[name]; ok {
		return nil, ErrExists
	}
	e := &Entry{name: name, inode: ino}
	d.entries[name] = d.order.PushBack(e)
	return e, nil
}

// RemoveLocked unlinks the entry for name and marks it removed. The lock
// must be held.
func (d *Directory) RemoveLocked(name string) (*Entry, error) {
	el, ok := d.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	delete(d.entries, name)
	e := d.order.Remove(el).(*Entry)
	e.removed.Store(true)
	return e, nil
}

// Range calls fn for every entry in insertion order until fn returns false.
// The read lock is held for the whole iteration; fn must not mutate d.
func (d *Directory) Range(fn func(e *Entry) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.RangeLocked(fn)
}

// RangeLocked is Range for callers holding the lock.
func (d *Directory) RangeLocked(fn func(e *Entry) bool) {
	for el := d.order.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.(*Entry)) {
			return
		}
	}
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
