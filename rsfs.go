package rsfs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rsfs/internal/block"
	"github.com/hupe1980/rsfs/internal/dir"
	"github.com/hupe1980/rsfs/internal/filetable"
	"github.com/hupe1980/rsfs/internal/inode"
	"github.com/hupe1980/rsfs/internal/resource"
)

// FS is an in-memory file system instance. All methods are safe for
// concurrent use.
//
// Lock order: directory, open file table, descriptor, inode, bitmap.
// An open waits on the file's gate without holding any of them.
type FS struct {
	opts Options

	blocks *block.Store
	inodes *inode.Table
	dir    *dir.Directory
	files  *filetable.Table
	rc     *resource.Controller

	logger  *Logger
	metrics MetricsCollector

	statMu sync.Mutex // serializes Stat
	closed atomic.Bool
}

// New creates a file system with every block, inode and descriptor slot free.
func New(optFns ...func(o *Options)) (*FS, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := NoopLogger()
	if opts.Logger != nil {
		logger = &Logger{Logger: opts.Logger}
	}

	var metrics MetricsCollector = NoopMetricsCollector{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   opts.MemoryLimitBytes,
		IOLimitBytesPerSec: opts.IOLimitBytesPerSec,
	})

	poolBytes := int64(opts.NumBlocks) * int64(opts.BlockSize)
	if err := rc.Reserve(poolBytes); err != nil {
		return nil, fmt.Errorf("rsfs: block pool of %d bytes: %w", poolBytes, err)
	}

	blocks, err := block.New(opts.NumBlocks, opts.BlockSize)
	if err != nil {
		rc.Release(poolBytes)
		return nil, err
	}

	inodes, err := inode.NewTable(opts.NumInodes, opts.NumPointers)
	if err != nil {
		rc.Release(poolBytes)
		return nil, err
	}

	files, err := filetable.New(opts.NumOpenFiles)
	if err != nil {
		rc.Release(poolBytes)
		return nil, err
	}

	fs := &FS{
		opts:    opts,
		blocks:  blocks,
		inodes:  inodes,
		dir:     dir.New(),
		files:   files,
		rc:      rc,
		logger:  logger,
		metrics: metrics,
	}

	logger.Info("file system initialized",
		"blocks", opts.NumBlocks,
		"block_size", opts.BlockSize,
		"inodes", opts.NumInodes,
		"pointers", opts.NumPointers,
		"open_files", opts.NumOpenFiles,
		"memory_reserved", rc.Reserved(),
		"memory_limit", rc.Limit(),
		"io_throttled", rc.Throttled(),
	)

	return fs, nil
}

// Unmount tears the instance down. Every later call except Close fails with
// ErrClosed. Unmount does not wait for calls already in progress; an open
// blocked on a file returns ErrClosed once the descriptor it waits on is
// closed.
func (fs *FS) Unmount() error {
	if fs == nil {
		return nil
	}
	if !fs.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	fs.rc.Release(fs.blocks.Bytes())
	fs.logger.Info("file system unmounted")
	return nil
}

// Options returns the options the instance was created with.
func (fs *FS) Options() Options { return fs.opts }

func (fs *FS) checkOpen() error {
	if fs.closed.Load() {
		return ErrClosed
	}
	return nil
}

// invariant reports a broken internal invariant. It panics in debug builds.
func (fs *FS) invariant(l *Logger, err error) error {
	err = translateError(err)
	l.LogInvariant(context.Background(), err)
	if debugInvariants {
		panic(err)
	}
	return err
}

// Create adds an empty file. It returns ErrAlreadyExists if name is taken and
// ErrNoInode if every inode is in use.
func (fs *FS) Create(name string) (err error) {
	ino := -1
	defer func() {
		fs.metrics.RecordCreate(err)
		fs.logger.LogCreate(context.Background(), name, ino, err)
	}()

	if err := fs.checkOpen(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty file name", ErrInvalidArgument)
	}

	fs.dir.Lock()
	defer fs.dir.Unlock()

	if fs.dir.LookupLocked(name) != nil {
		return fmt.Errorf("create %q: %w", name, ErrAlreadyExists)
	}

	ino = fs.inodes.Alloc()
	if ino < 0 {
		fs.metrics.RecordExhausted()
		return fmt.Errorf("create %q: %w", name, ErrNoInode)
	}

	if _, err := fs.dir.InsertLocked(name, ino); err != nil {
		_ = fs.inodes.Free(ino)
		return translateError(err)
	}
	return nil
}

// Open opens name with the given mode and returns a descriptor. It blocks
// until the file's access policy admits the mode.
func (fs *FS) Open(name string, mode Mode) (int, error) {
	return fs.OpenContext(context.Background(), name, mode)
}

// OpenContext is like Open but gives up waiting when ctx is done.
func (fs *FS) OpenContext(ctx context.Context, name string, mode Mode) (fd int, err error) {
	fd = -1
	var wait time.Duration
	defer func() {
		fs.metrics.RecordOpen(mode, wait, err)
		fs.logger.LogOpen(ctx, name, mode, fd, err)
	}()

	if err := fs.checkOpen(); err != nil {
		return -1, err
	}
	if !mode.Valid() {
		return -1, fmt.Errorf("%w: mode %s", ErrInvalidArgument, mode)
	}

	entry := fs.dir.Lookup(name)
	if entry == nil {
		return -1, fmt.Errorf("open %q: %w", name, ErrNotFound)
	}

	gate := fs.inodes.Get(entry.Inode()).Gate()

	if !tryAcquireGate(gate, mode) {
		fs.logger.WithFile(name).DebugContext(ctx, "open waiting", "mode", mode.String())

		start := time.Now()
		if mode == ReadWrite {
			err = gate.AcquireWrite(ctx)
		} else {
			err = gate.AcquireRead(ctx)
		}
		wait = time.Since(start)
		if err != nil {
			return -1, fmt.Errorf("open %q: %w", name, err)
		}
	}

	// Unmount may have happened while waiting.
	if err := fs.checkOpen(); err != nil {
		releaseGate(gate, mode)
		return -1, err
	}

	fd, err = fs.files.Claim(entry, mode)
	if err != nil {
		releaseGate(gate, mode)
		if errors.Is(err, filetable.ErrTableFull) {
			fs.metrics.RecordExhausted()
		}
		return -1, fmt.Errorf("open %q: %w", name, translateError(err))
	}
	return fd, nil
}

// Close releases descriptor fd and wakes opens waiting on its file. It still
// works after Unmount, so opens blocked on the file return ErrClosed instead
// of waiting forever.
func (fs *FS) Close(fd int) (err error) {
	defer func() {
		fs.logger.LogClose(context.Background(), fd, err)
	}()

	file, mode, err := fs.files.Release(fd)
	if err != nil {
		return translateError(err)
	}

	releaseGate(fs.inodes.Get(file.Inode()).Gate(), mode)
	return nil
}

func tryAcquireGate(g *inode.Gate, mode Mode) bool {
	if mode == ReadWrite {
		return g.TryAcquireWrite()
	}
	return g.TryAcquireRead()
}

func releaseGate(g *inode.Gate, mode Mode) {
	if mode == ReadWrite {
		g.ReleaseWrite()
	} else {
		g.ReleaseRead()
	}
}

// Delete removes name and frees its blocks and inode. It returns ErrNotFound
// if the file does not exist and ErrBusy if any descriptor has it open.
//
// The directory lock is held for the whole call, so namespace changes and
// Stat never observe a half-deleted file.
func (fs *FS) Delete(name string) (err error) {
	freed := 0
	defer func() {
		fs.metrics.RecordDelete(err)
		fs.logger.LogDelete(context.Background(), name, freed, err)
	}()

	if err := fs.checkOpen(); err != nil {
		return err
	}

	fs.dir.Lock()
	defer fs.dir.Unlock()

	entry := fs.dir.LookupLocked(name)
	if entry == nil {
		return fmt.Errorf("delete %q: %w", name, ErrNotFound)
	}
	ino := entry.Inode()

	// Unlinking under the table lock orders it against Claim: an open that
	// was waiting on the gate sees the entry as removed.
	fs.files.Lock()
	if fs.files.IsOpenLocked(ino) {
		fs.files.Unlock()
		return fmt.Errorf("delete %q: %w", name, ErrBusy)
	}
	if _, err := fs.dir.RemoveLocked(name); err != nil {
		fs.files.Unlock()
		return translateError(err)
	}
	fs.files.Unlock()

	in := fs.inodes.Get(ino)
	var errs []error

	in.Lock()
	for slot := range in.NumPointers() {
		blk := in.Pointer(slot)
		if blk == inode.NoBlock {
			continue
		}
		if err := fs.blocks.Free(blk); err != nil {
			errs = append(errs, fs.invariant(fs.logger.WithFile(name), err))
		} else {
			freed++
		}
		in.SetPointer(slot, inode.NoBlock)
	}
	in.SetLength(0)
	in.Unlock()

	if err := fs.inodes.Free(ino); err != nil {
		errs = append(errs, fs.invariant(fs.logger.WithFile(name), err))
	}

	return errors.Join(errs...)
}
