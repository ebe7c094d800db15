package rsfs

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/rsfs/internal/conv"
	"github.com/hupe1980/rsfs/internal/dir"
	"github.com/hupe1980/rsfs/internal/inode"
)

// Verify checks the storage invariants and returns an error wrapping
// ErrCorrupt that lists every violation:
//
//   - every directory entry references a distinct, allocated inode
//   - every allocated inode is reachable from the directory
//   - every block pointer references a distinct, allocated block
//   - every allocated block is referenced by exactly one pointer
//   - no file is longer than the maximum file size
//   - every open descriptor references a file in the directory
//
// Verify holds the directory lock and the read lock of every file's inode,
// so it waits for in-flight writes and sees a consistent snapshot.
func (fs *FS) Verify() error {
	if err := fs.checkOpen(); err != nil {
		return err
	}

	fs.dir.Lock()
	defer fs.dir.Unlock()

	var (
		errs      []error
		reachable = roaring.New()
		owned     = roaring.New()
		locked    []*inode.Inode
	)

	// Taken before any inode lock: the table lock precedes inode locks.
	openInodes := fs.files.OpenInodes()

	defer func() {
		for _, in := range locked {
			in.RUnlock()
		}
	}()

	fs.dir.RangeLocked(func(e *dir.Entry) bool {
		ino, err := conv.IntToUint32(e.Inode())
		if err != nil {
			errs = append(errs, fmt.Errorf("file %q: %w", e.Name(), err))
			return true
		}
		if !reachable.CheckedAdd(ino) {
			errs = append(errs, fmt.Errorf("file %q: inode %d shared with another file", e.Name(), ino))
			return true
		}
		if !fs.inodes.IsUsed(e.Inode()) {
			errs = append(errs, fmt.Errorf("file %q: inode %d is not allocated", e.Name(), ino))
		}

		in := fs.inodes.Get(e.Inode())
		in.RLock()
		locked = append(locked, in)

		if in.Length() > fs.opts.MaxFileSize() {
			errs = append(errs, fmt.Errorf("file %q: length %d exceeds maximum %d",
				e.Name(), in.Length(), fs.opts.MaxFileSize()))
		}

		for slot := range in.NumPointers() {
			blk := in.Pointer(slot)
			if blk == inode.NoBlock {
				continue
			}
			b, err := conv.IntToUint32(blk)
			if err != nil {
				errs = append(errs, fmt.Errorf("file %q slot %d: %w", e.Name(), slot, err))
				continue
			}
			if !owned.CheckedAdd(b) {
				errs = append(errs, fmt.Errorf("file %q slot %d: block %d referenced twice", e.Name(), slot, b))
			}
			if !fs.blocks.IsUsed(blk) {
				errs = append(errs, fmt.Errorf("file %q slot %d: block %d is not allocated", e.Name(), slot, b))
			}
		}
		return true
	})

	usedInodes, err := conv.IntsToUint32(fs.inodes.Allocated())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if leaked := roaring.AndNot(roaring.BitmapOf(usedInodes...), reachable); !leaked.IsEmpty() {
		errs = append(errs, fmt.Errorf("inodes allocated but unreachable: %v", leaked.ToArray()))
	}

	usedBlocks, err := conv.IntsToUint32(fs.blocks.Allocated())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if leaked := roaring.AndNot(roaring.BitmapOf(usedBlocks...), owned); !leaked.IsEmpty() {
		errs = append(errs, fmt.Errorf("blocks allocated but unreferenced: %v", leaked.ToArray()))
	}

	open, err := conv.IntsToUint32(openInodes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if stale := roaring.AndNot(roaring.BitmapOf(open...), reachable); !stale.IsEmpty() {
		errs = append(errs, fmt.Errorf("descriptors open on unreachable inodes: %v", stale.ToArray()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCorrupt, errors.Join(errs...))
	}
	return nil
}
