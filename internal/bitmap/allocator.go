package bitmap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrOutOfRange is returned when a slot index is outside the universe.
	ErrOutOfRange = errors.New("slot out of range")

	// ErrNotAllocated is returned when freeing a slot that is already free.
	ErrNotAllocated = errors.New("slot not allocated")
)

// Allocator is a fixed-size allocation bitmap safe for concurrent use.
type Allocator struct {
	mu   sync.Mutex
	bits *bitset.BitSet
	size uint
	used uint
}

// New creates an Allocator with size free slots.
func New(size int) *Allocator {
	if size < 0 {
		size = 0
	}
	return &Allocator{
		bits: bitset.New(uint(size)),
		size: uint(size),
	}
}

// Alloc marks the lowest free slot as used and returns its index.
// Returns -1 if every slot is in use.
func (a *Allocator) Alloc() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used == a.size {
		return -1
	}

	i, ok := a.bits.NextClear(0)
	if !ok || i >= a.size {
		return -1
	}

	a.bits.Set(i)
	a.used++
	return int(i)
}

// Free marks slot i as free again.
func (a *Allocator) Free(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i < 0 || uint(i) >= a.size {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if !a.bits.Test(uint(i)) {
		return fmt.Errorf("%w: %d", ErrNotAllocated, i)
	}

	a.bits.Clear(uint(i))
	a.used--
	return nil
}

// IsSet reports whether slot i is in use.
func (a *Allocator) IsSet(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i < 0 || uint(i) >= a.size {
		return false
	}
	return a.bits.Test(uint(i))
}

// Used returns the number of slots in use.
func (a *Allocator) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.used)
}

// Len returns the total number of slots.
func (a *Allocator) Len() int {
	return int(a.size)
}

// Snapshot returns the indices of all used slots in ascending order.
func (a *Allocator) Snapshot() []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]int, 0, a.used)
	for i, ok := a.bits.NextSet(0); ok && i < a.size; i, ok = a.bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}
