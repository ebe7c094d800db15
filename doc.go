// Package rsfs provides an in-memory research file system for Go.
//
// RSFS exposes a small POSIX-like API over a fixed pool of simulated disk
// blocks and inodes. It is built to be hammered by many goroutines at once:
// allocation bitmaps, per-inode locks, per-descriptor cursors and an
// open-policy gate per file keep concurrent create, open, read, write, append,
// cut and delete calls safe without a global lock.
//
// # Quick Start
//
//	fsys, err := rsfs.New()
//	if err != nil {
//	    panic(err)
//	}
//	defer fsys.Unmount()
//
//	_ = fsys.Create("a")
//	fd, _ := fsys.Open("a", rsfs.ReadWrite)
//	fsys.Append(ctx, fd, []byte("hello"))
//	fsys.Seek(fd, 0)
//	buf := make([]byte, 5)
//	n, _ := fsys.Read(ctx, fd, buf) // n == 5, buf == "hello"
//	fsys.Close(fd)
//
// # Access Policy
//
// A file is open either by any number of ReadOnly descriptors or by exactly
// one ReadWrite descriptor. Open blocks until its mode is admitted: a
// ReadOnly open waits only while a writer holds the file, and a ReadWrite
// open waits for every other descriptor to close. A ReadOnly open is admitted
// while only readers hold the file even if a ReadWrite open is waiting.
// OpenContext bounds the wait with a context.
//
// # Partial Progress
//
// Append and Write stop early when the block pool is exhausted or the file
// reaches its maximum size (NumPointers * BlockSize). They return the number of
// bytes actually transferred and a nil error; callers compare it with the
// requested size.
//
// # Numeric Codes
//
// Code maps any returned error to the classic integer contract
// (0 success, -1 failure, -2 no free inode on Create):
//
//	nil                      0
//	ErrNoInode              -2  Create with every inode in use
//	ErrInvalidArgument      -1  bad mode, name, size or offset
//	ErrBadDescriptor        -1  descriptor out of range or not open
//	ErrReadOnly             -1  Append, Write or Cut on a ReadOnly descriptor
//	ErrNotFound             -1  Open or Delete of a missing file
//	ErrAlreadyExists        -1  Create of an existing name
//	ErrNoDescriptor         -1  Open with the open file table full
//	ErrBusy                 -1  Delete of an open file
//	ErrClosed               -1  any call after Unmount
//
// # Capacities
//
// All pools are fixed when the file system is created:
//
//	fsys, _ := rsfs.New(func(o *rsfs.Options) {
//	    o.NumBlocks = 1024
//	    o.BlockSize = 512
//	    o.NumInodes = 64
//	    o.NumPointers = 32
//	    o.NumOpenFiles = 128
//	})
package rsfs
