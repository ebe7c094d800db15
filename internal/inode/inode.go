package inode

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/rsfs/internal/bitmap"
)

// NoBlock marks an unused block pointer.
const NoBlock = -1

// ErrInvalidInode is returned for an out-of-range or unallocated inode number.
var ErrInvalidInode = errors.New("invalid inode")

// Inode is the storage record of one file.
//
// Length, Pointer, SetLength, SetPointer and Reset require the caller to hold
// the inode lock (shared for reads, exclusive for writes).
type Inode struct {
	mu     sync.RWMutex
	length int
	ptrs   []int
	gate   *Gate
}

func newInode(numPointers int) *Inode {
	in := &Inode{
		ptrs: make([]int, numPointers),
		gate: NewGate(),
	}
	in.Reset()
	return in
}

func (in *Inode) Lock()    { in.mu.Lock() }
func (in *Inode) Unlock()  { in.mu.Unlock() }
func (in *Inode) RLock()   { in.mu.RLock() }
func (in *Inode) RUnlock() { in.mu.RUnlock() }

// Gate returns the open-policy gate of the inode.
func (in *Inode) Gate() *Gate { return in.gate }

// Length returns the number of bytes in the file.
func (in *Inode) Length() int { return in.length }

// SetLength sets the file length.
func (in *Inode) SetLength(n int) { in.length = n }

// NumPointers returns the number of block pointer slots.
func (in *Inode) NumPointers() int { return len(in.ptrs) }

// Pointer returns the block referenced by slot, or NoBlock.
func (in *Inode) Pointer(slot int) int {
	if slot < 0 || slot >= len(in.ptrs) {
		return NoBlock
	}
	return in.ptrs[slot]
}

// SetPointer points slot at block blk.
func (in *Inode) SetPointer(slot, blk int) {
	in.ptrs[slot] = blk
}

// Reset clears the length and every pointer.
func (in *Inode) Reset() {
	in.length = 0
	for i := range in.ptrs {
		in.ptrs[i] = NoBlock
	}
}

// Table is the fixed pool of inodes and their allocation bitmap.
type Table struct {
	inodes []*Inode
	bitmap *bitmap.Allocator
}

// NewTable creates numInodes inodes with numPointers block pointers each.
func NewTable(numInodes, numPointers int) (*Table, error) {
	if numInodes <= 0 || numPointers <= 0 {
		return nil, fmt.Errorf("inode table: invalid geometry %dx%d", numInodes, numPointers)
	}

	inodes := make([]*Inode, numInodes)
	for i := range inodes {
		inodes[i] = newInode(numPointers)
	}

	return &Table{
		inodes: inodes,
		bitmap: bitmap.New(numInodes),
	}, nil
}

// Alloc claims a free inode, resets it and returns its number.
// Returns -1 when the pool is exhausted.
func (t *Table) Alloc() int {
	i := t.bitmap.Alloc()
	if i < 0 {
		return -1
	}

	in := t.inodes[i]
	in.Lock()
	in.Reset()
	in.Unlock()
	return i
}

// Free returns inode i to the pool. The caller must have released its blocks.
func (t *Table) Free(i int) error {
	if err := t.bitmap.Free(i); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInode, err)
	}
	return nil
}

// Get returns inode i, or nil if i is out of range.
func (t *Table) Get(i int) *Inode {
	if i < 0 || i >= len(t.inodes) {
		return nil
	}
	return t.inodes[i]
}

// IsUsed reports whether inode i is allocated.
func (t *Table) IsUsed(i int) bool { return t.bitmap.IsSet(i) }

// Used returns the number of allocated inodes.
func (t *Table) Used() int { return t.bitmap.Used() }

// Len returns the size of the pool.
func (t *Table) Len() int { return len(t.inodes) }

// Allocated returns the numbers of all allocated inodes.
func (t *Table) Allocated() []int { return t.bitmap.Snapshot() }
