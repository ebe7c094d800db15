package rsfs

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/rsfs/internal/filetable"
	"github.com/hupe1980/rsfs/internal/inode"
)

// acquire returns the locked descriptor entry and its inode.
func (fs *FS) acquire(fd int) (*filetable.Entry, *inode.Inode, error) {
	if err := fs.checkOpen(); err != nil {
		return nil, nil, err
	}
	e, err := fs.files.Acquire(fd)
	if err != nil {
		return nil, nil, translateError(err)
	}
	return e, fs.inodes.Get(e.File().Inode()), nil
}

// writeAt copies p into in starting at byte off, allocating blocks for empty
// pointer slots. It stops early when the pool is exhausted or off reaches the
// maximum file size. The inode lock must be held exclusively.
func (fs *FS) writeAt(in *inode.Inode, off int, p []byte) int {
	bs := fs.blocks.BlockSize()
	n := 0
	for n < len(p) {
		slot := (off + n) / bs
		if slot >= in.NumPointers() {
			break
		}
		blk := in.Pointer(slot)
		if blk == inode.NoBlock {
			blk = fs.blocks.Alloc()
			if blk < 0 {
				break
			}
			in.SetPointer(slot, blk)
		}
		n += fs.blocks.WriteAt(blk, (off+n)%bs, p[n:])
	}
	return n
}

// readAt copies bytes of in starting at off into p. Slots without a block
// read as zeros. The inode lock must be held.
func (fs *FS) readAt(in *inode.Inode, off int, p []byte) {
	bs := fs.blocks.BlockSize()
	n := 0
	for n < len(p) {
		slot := (off + n) / bs
		blockOff := (off + n) % bs
		blk := in.Pointer(slot)
		if blk == inode.NoBlock {
			chunk := min(len(p)-n, bs-blockOff)
			clear(p[n : n+chunk])
			n += chunk
			continue
		}
		n += fs.blocks.ReadAt(blk, blockOff, p[n:])
	}
}

// Append writes p at the end of the file, independent of the cursor, which
// is left unchanged. It requires a ReadWrite descriptor and a non-empty p.
//
// Append returns the number of bytes appended. A count below len(p) with a
// nil error means the block pool or the file's pointer slots ran out; the
// bytes that were appended are kept.
func (fs *FS) Append(ctx context.Context, fd int, p []byte) (n int, err error) {
	start := time.Now()
	defer func() {
		fs.metrics.RecordWrite(n, time.Since(start), err)
	}()

	if len(p) == 0 {
		return 0, fmt.Errorf("%w: empty append", ErrInvalidArgument)
	}
	if err := fs.rc.Transfer(ctx, len(p)); err != nil {
		return 0, err
	}

	e, in, err := fs.acquire(fd)
	if err != nil {
		return 0, err
	}
	defer e.Unlock()

	if e.Mode() != ReadWrite {
		return 0, ErrReadOnly
	}

	in.Lock()
	length := in.Length()
	n = fs.writeAt(in, length, p)
	in.SetLength(length + n)
	in.Unlock()

	if n < len(p) {
		fs.metrics.RecordExhausted()
		fs.logger.WithFD(fd).LogExhausted(ctx, "append", len(p), n)
	}
	return n, nil
}

// Write writes p at the cursor, overwriting existing bytes and extending the
// file past its end as needed, then advances the cursor. Write never shrinks
// a file. It requires a ReadWrite descriptor.
//
// Like Append, a short count with a nil error means space ran out.
func (fs *FS) Write(ctx context.Context, fd int, p []byte) (n int, err error) {
	start := time.Now()
	defer func() {
		fs.metrics.RecordWrite(n, time.Since(start), err)
	}()

	if err := fs.rc.Transfer(ctx, len(p)); err != nil {
		return 0, err
	}

	e, in, err := fs.acquire(fd)
	if err != nil {
		return 0, err
	}
	defer e.Unlock()

	if e.Mode() != ReadWrite {
		return 0, ErrReadOnly
	}
	if len(p) == 0 {
		return 0, nil
	}

	pos := e.Position()

	in.Lock()
	n = fs.writeAt(in, pos, p)
	if pos+n > in.Length() {
		in.SetLength(pos + n)
	}
	in.Unlock()

	e.SetPosition(pos + n)

	if n < len(p) {
		fs.metrics.RecordExhausted()
		fs.logger.WithFD(fd).LogExhausted(ctx, "write", len(p), n)
	}
	return n, nil
}

// Read reads up to len(p) bytes from the cursor and advances it. It returns
// 0 at the end of the file.
func (fs *FS) Read(ctx context.Context, fd int, p []byte) (n int, err error) {
	start := time.Now()
	defer func() {
		fs.metrics.RecordRead(n, time.Since(start), err)
	}()

	if err := fs.rc.Transfer(ctx, len(p)); err != nil {
		return 0, err
	}

	e, in, err := fs.acquire(fd)
	if err != nil {
		return 0, err
	}
	defer e.Unlock()

	pos := e.Position()

	in.RLock()
	n = max(min(len(p), in.Length()-pos), 0)
	fs.readAt(in, pos, p[:n])
	in.RUnlock()

	e.SetPosition(pos + n)
	return n, nil
}

// Seek moves the cursor to offset and returns the new position. An offset
// outside [0, length] is not an error: the cursor stays where it is and its
// current position is returned.
func (fs *FS) Seek(fd int, offset int) (int, error) {
	e, in, err := fs.acquire(fd)
	if err != nil {
		return -1, err
	}
	defer e.Unlock()

	in.RLock()
	length := in.Length()
	in.RUnlock()

	if offset < 0 || offset > length {
		return e.Position(), nil
	}
	e.SetPosition(offset)
	return offset, nil
}

// Cut sets the file length to cursor + size. Since size is positive, the
// cursor always stays within the new length. Only the length changes: blocks
// are neither freed nor zeroed, so growing a file with Cut exposes whatever
// its blocks still hold, and slots without a block read as zeros.
//
// Cut requires a ReadWrite descriptor and size > 0, and fails if the new
// length exceeds the maximum file size. It returns size.
func (fs *FS) Cut(fd int, size int) (int, error) {
	if size <= 0 {
		return -1, fmt.Errorf("%w: cut size %d", ErrInvalidArgument, size)
	}

	e, in, err := fs.acquire(fd)
	if err != nil {
		return -1, err
	}
	defer e.Unlock()

	if e.Mode() != ReadWrite {
		return -1, ErrReadOnly
	}

	pos := e.Position()
	newLength := pos + size
	if newLength > fs.opts.MaxFileSize() {
		return -1, fmt.Errorf("%w: length %d exceeds maximum file size %d",
			ErrInvalidArgument, newLength, fs.opts.MaxFileSize())
	}

	in.Lock()
	in.SetLength(newLength)
	in.Unlock()

	return size, nil
}

// size returns the current length of the file open on fd.
func (fs *FS) size(fd int) (int, error) {
	e, in, err := fs.acquire(fd)
	if err != nil {
		return -1, err
	}
	defer e.Unlock()

	in.RLock()
	defer in.RUnlock()
	return in.Length(), nil
}
