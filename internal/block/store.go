// Package block implements the simulated disk: a fixed array of fixed-size
// data blocks whose ownership is tracked by an allocation bitmap.
package block

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rsfs/internal/bitmap"
)

// ErrInvalidBlock is returned for an out-of-range or unallocated block index.
var ErrInvalidBlock = errors.New("invalid block")

// Store is a pool of data blocks. Block contents are not synchronized by the
// Store: a block is owned by the single inode pointer that references it, and
// that inode's lock guards access to the bytes.
type Store struct {
	blockSize int
	blocks    [][]byte
	bitmap    *bitmap.Allocator
}

// New allocates numBlocks blocks of blockSize bytes each.
func New(numBlocks, blockSize int) (*Store, error) {
	if numBlocks <= 0 || blockSize <= 0 {
		return nil, fmt.Errorf("block store: invalid geometry %dx%d", numBlocks, blockSize)
	}

	// One backing slab keeps the pool contiguous.
	slab := make([]byte, numBlocks*blockSize)
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = slab[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
	}

	return &Store{
		blockSize: blockSize,
		blocks:    blocks,
		bitmap:    bitmap.New(numBlocks),
	}, nil
}

// Alloc claims a free block, zeroes it and returns its index.
// Returns -1 when the pool is exhausted.
func (s *Store) Alloc() int {
	i := s.bitmap.Alloc()
	if i < 0 {
		return -1
	}
	clear(s.blocks[i])
	return i
}

// Free scrubs block i and returns it to the pool.
func (s *Store) Free(i int) error {
	if i < 0 || i >= len(s.blocks) {
		return fmt.Errorf("%w: %d", ErrInvalidBlock, i)
	}
	if !s.bitmap.IsSet(i) {
		return fmt.Errorf("%w: double free of block %d", ErrInvalidBlock, i)
	}
	clear(s.blocks[i])
	if err := s.bitmap.Free(i); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}
	return nil
}

// ReadAt copies bytes from block i starting at off into p.
// It returns the number of bytes copied, bounded by the block end.
func (s *Store) ReadAt(i, off int, p []byte) int {
	if i < 0 || i >= len(s.blocks) || off < 0 || off >= s.blockSize {
		return 0
	}
	return copy(p, s.blocks[i][off:])
}

// WriteAt copies p into block i starting at off.
// It returns the number of bytes copied, bounded by the block end.
func (s *Store) WriteAt(i, off int, p []byte) int {
	if i < 0 || i >= len(s.blocks) || off < 0 || off >= s.blockSize {
		return 0
	}
	return copy(s.blocks[i][off:], p)
}

// IsUsed reports whether block i is allocated.
func (s *Store) IsUsed(i int) bool { return s.bitmap.IsSet(i) }

// Used returns the number of allocated blocks.
func (s *Store) Used() int { return s.bitmap.Used() }

// Len returns the total number of blocks.
func (s *Store) Len() int { return len(s.blocks) }

// BlockSize returns the size of a block in bytes.
func (s *Store) BlockSize() int { return s.blockSize }

// Allocated returns the indices of all allocated blocks.
func (s *Store) Allocated() []int { return s.bitmap.Snapshot() }

// Bytes returns the total size of the pool in bytes.
func (s *Store) Bytes() int64 { return int64(len(s.blocks)) * int64(s.blockSize) }
