package rsfs_test

import (
	"context"
	"testing"

	"github.com/hupe1980/rsfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T, optFns ...func(o *rsfs.Options)) *rsfs.FS {
	t.Helper()
	fsys, err := rsfs.New(optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Unmount() })
	return fsys
}

// createOpen creates name and opens it with mode.
func createOpen(t *testing.T, fsys *rsfs.FS, name string, mode rsfs.Mode) int {
	t.Helper()
	require.NoError(t, fsys.Create(name))
	fd, err := fsys.Open(name, mode)
	require.NoError(t, err)
	return fd
}

func readAll(t *testing.T, fsys *rsfs.FS, fd int) []byte {
	t.Helper()
	_, err := fsys.Seek(fd, 0)
	require.NoError(t, err)

	var out []byte
	buf := make([]byte, 7)
	for {
		n, err := fsys.Read(context.Background(), fd, buf)
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func fileLength(t *testing.T, fsys *rsfs.FS, name string) int {
	t.Helper()
	for _, f := range fsys.Stat().Files {
		if f.Name == name {
			return f.Length
		}
	}
	t.Fatalf("file %q not in stat report", name)
	return -1
}

func TestNew_Defaults(t *testing.T) {
	fsys := newFS(t)

	opts := fsys.Options()
	assert.Equal(t, rsfs.DefaultOptions.NumBlocks, opts.NumBlocks)
	assert.Equal(t, rsfs.DefaultOptions.NumOpenFiles, opts.NumOpenFiles)

	r := fsys.Stat()
	assert.Empty(t, r.Files)
	assert.Equal(t, opts.NumBlocks, r.TotalBlocks)
	assert.Zero(t, r.UsedBlocks)
	assert.Equal(t, opts.NumInodes, r.TotalInodes)
	assert.Zero(t, r.UsedInodes)
	assert.Zero(t, r.OpenFiles)
	require.NoError(t, fsys.Verify())
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(o *rsfs.Options)
	}{
		{"zero blocks", func(o *rsfs.Options) { o.NumBlocks = 0 }},
		{"zero block size", func(o *rsfs.Options) { o.BlockSize = 0 }},
		{"negative inodes", func(o *rsfs.Options) { o.NumInodes = -1 }},
		{"zero pointers", func(o *rsfs.Options) { o.NumPointers = 0 }},
		{"zero open files", func(o *rsfs.Options) { o.NumOpenFiles = 0 }},
		{"negative memory limit", func(o *rsfs.Options) { o.MemoryLimitBytes = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rsfs.New(tt.fn)
			assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)
			assert.Equal(t, -1, rsfs.Code(err))
		})
	}
}

func TestNew_MemoryLimit(t *testing.T) {
	_, err := rsfs.New(func(o *rsfs.Options) {
		o.NumBlocks = 64
		o.BlockSize = 32
		o.MemoryLimitBytes = 1024
	})
	assert.ErrorIs(t, err, rsfs.ErrMemoryLimitExceeded)
	assert.Equal(t, -1, rsfs.Code(err))

	fsys, err := rsfs.New(func(o *rsfs.Options) {
		o.NumBlocks = 32
		o.BlockSize = 32
		o.MemoryLimitBytes = 1024
	})
	require.NoError(t, err)
	require.NoError(t, fsys.Unmount())
}

func TestCreate(t *testing.T) {
	fsys := newFS(t)

	require.NoError(t, fsys.Create("a"))

	err := fsys.Create("a")
	assert.ErrorIs(t, err, rsfs.ErrAlreadyExists)
	assert.Equal(t, -1, rsfs.Code(err))

	err = fsys.Create("")
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)

	r := fsys.Stat()
	require.Len(t, r.Files, 1)
	assert.Equal(t, rsfs.FileInfo{Name: "a", Length: 0, Inode: 0}, r.Files[0])
	assert.Equal(t, 1, r.UsedInodes)
}

func TestCreate_InodeExhaustion(t *testing.T) {
	fsys := newFS(t, func(o *rsfs.Options) { o.NumInodes = 3 })

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, fsys.Create(name))
	}

	err := fsys.Create("d")
	assert.ErrorIs(t, err, rsfs.ErrNoInode)
	assert.ErrorIs(t, err, rsfs.ErrResourceExhausted)
	assert.Equal(t, -2, rsfs.Code(err))

	// A failed create leaves no entry behind.
	assert.Len(t, fsys.Stat().Files, 3)
	_, err = fsys.Open("d", rsfs.ReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrNotFound)
	require.NoError(t, fsys.Verify())

	// Deleting a file frees its inode for the next create.
	require.NoError(t, fsys.Delete("b"))
	require.NoError(t, fsys.Create("d"))
}

func TestOpen_Errors(t *testing.T) {
	fsys := newFS(t, func(o *rsfs.Options) { o.NumOpenFiles = 2 })

	_, err := fsys.Open("missing", rsfs.ReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrNotFound)
	assert.Equal(t, -1, rsfs.Code(err))

	require.NoError(t, fsys.Create("a"))

	_, err = fsys.Open("a", rsfs.Mode(42))
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)

	fd0, err := fsys.Open("a", rsfs.ReadOnly)
	require.NoError(t, err)
	fd1, err := fsys.Open("a", rsfs.ReadOnly)
	require.NoError(t, err)
	assert.NotEqual(t, fd0, fd1)

	_, err = fsys.Open("a", rsfs.ReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrNoDescriptor)
	assert.Equal(t, -1, rsfs.Code(err))

	// The failed open released its share: a writer can get in once the
	// readers are gone.
	require.NoError(t, fsys.Close(fd0))
	require.NoError(t, fsys.Close(fd1))
	fd, err := fsys.Open("a", rsfs.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(fd))
}

func TestScenario_AppendSeekRead(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "a", rsfs.ReadWrite)

	n, err := fsys.Append(ctx, fd, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	pos, err := fsys.Seek(fd, 0)
	require.NoError(t, err)
	assert.Zero(t, pos)

	buf := make([]byte, 5)
	n, err = fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestWrite_OverwriteAndExtend(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("abcde"))
	require.NoError(t, err)

	pos, err := fsys.Seek(fd, 3)
	require.NoError(t, err)
	require.Equal(t, 3, pos)

	n, err := fsys.Write(ctx, fd, []byte("WXYZ"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, 7, fileLength(t, fsys, "f"))
	assert.Equal(t, "abcWXYZ", string(readAll(t, fsys, fd)))
}

func TestWrite_NeverShrinks(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("0123456789"))
	require.NoError(t, err)

	_, err = fsys.Write(ctx, fd, []byte("ab"))
	require.NoError(t, err)

	assert.Equal(t, 10, fileLength(t, fsys, "f"))
	assert.Equal(t, "ab23456789", string(readAll(t, fsys, fd)))
}

func TestWrite_AcrossBlocks(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(16, 4, 2, 8, 4))
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)

	data := []byte("the quick brown fox")
	n, err := fsys.Write(ctx, fd, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	// Cursor advanced past the written bytes.
	pos, err := fsys.Seek(fd, -1)
	require.NoError(t, err)
	assert.Equal(t, len(data), pos)

	assert.Equal(t, data, readAll(t, fsys, fd))
	assert.Equal(t, 5, fsys.Stat().UsedBlocks)
	require.NoError(t, fsys.Verify())
}

func TestWrite_ReadOnlyDescriptor(t *testing.T) {
	fsys := newFS(t)
	fd := createOpen(t, fsys, "f", rsfs.ReadOnly)

	_, err := fsys.Write(t.Context(), fd, []byte("x"))
	assert.ErrorIs(t, err, rsfs.ErrReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)
}

func TestWrite_Empty(t *testing.T) {
	fsys := newFS(t)
	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)

	n, err := fsys.Write(t.Context(), fd, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fsys.Stat().UsedBlocks)
}

func TestAppend_EquivalentToSeekEndWrite(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(32, 4, 4, 8, 4))
	ctx := t.Context()

	a := createOpen(t, fsys, "a", rsfs.ReadWrite)
	b := createOpen(t, fsys, "b", rsfs.ReadWrite)

	chunks := []string{"abc", "defgh", "i", "jklmnop"}
	for _, c := range chunks {
		_, err := fsys.Append(ctx, a, []byte(c))
		require.NoError(t, err)

		_, err = fsys.Seek(b, fileLength(t, fsys, "b"))
		require.NoError(t, err)
		_, err = fsys.Write(ctx, b, []byte(c))
		require.NoError(t, err)
	}

	assert.Equal(t, readAll(t, fsys, b), readAll(t, fsys, a))
	assert.Equal(t, "abcdefghijklmnop", string(readAll(t, fsys, a)))
}

func TestAppend_DoesNotMoveCursor(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("hello"))
	require.NoError(t, err)
	_, err = fsys.Append(ctx, fd, []byte(" world"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestAppend_Errors(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	ro := createOpen(t, fsys, "f", rsfs.ReadOnly)

	_, err := fsys.Append(ctx, ro, []byte("x"))
	assert.ErrorIs(t, err, rsfs.ErrReadOnly)
	assert.Equal(t, -1, rsfs.Code(err))

	_, err = fsys.Append(ctx, ro, nil)
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)

	for _, fd := range []int{-1, 5, 1000} {
		_, err = fsys.Append(ctx, fd, []byte("x"))
		assert.ErrorIs(t, err, rsfs.ErrBadDescriptor, "fd %d", fd)
	}
}

func TestAppend_PartialOnBlockExhaustion(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(2, 4, 4, 8, 4))
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)

	n, err := fsys.Append(ctx, fd, []byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 8, fileLength(t, fsys, "f"))

	// Pool is empty now: nothing more fits but nothing is lost.
	n, err = fsys.Append(ctx, fd, []byte("xy"))
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, "01234567", string(readAll(t, fsys, fd)))
	assert.Equal(t, 2, fsys.Stat().UsedBlocks)
	require.NoError(t, fsys.Verify())
}

func TestAppend_PartialOnPointerExhaustion(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(16, 4, 2, 2, 4))
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)

	n, err := fsys.Append(ctx, fd, []byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	pos, err := fsys.Seek(fd, 8)
	require.NoError(t, err)
	require.Equal(t, 8, pos)

	n, err = fsys.Write(ctx, fd, []byte("z"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, fsys.Stat().UsedBlocks)
}

func TestRead(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("abcdef"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))

	n, err = fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "ef", string(buf[:n]))

	// End of file is not an error.
	n, err = fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = fsys.Read(ctx, 99, buf)
	assert.ErrorIs(t, err, rsfs.ErrBadDescriptor)
}

func TestRead_PrefixProperty(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(64, 8, 2, 16, 4))
	ctx := t.Context()

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Write(ctx, fd, data)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 7, 8, 9, 63, 64, 99, 100} {
		_, err := fsys.Seek(fd, 0)
		require.NoError(t, err)

		buf := make([]byte, n)
		got, err := fsys.Read(ctx, fd, buf)
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, data[:n], buf, "prefix of %d bytes", n)
	}
}

func TestSeek(t *testing.T) {
	fsys := newFS(t)

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(t.Context(), fd, []byte("12345"))
	require.NoError(t, err)

	tests := []struct {
		offset int
		want   int
	}{
		{3, 3},
		{5, 5}, // end of file is valid
		{6, 5}, // beyond the end: unchanged
		{-1, 5},
		{0, 0},
		{100, 0},
	}
	for _, tt := range tests {
		pos, err := fsys.Seek(fd, tt.offset)
		require.NoError(t, err)
		assert.Equal(t, tt.want, pos, "seek to %d", tt.offset)
	}

	pos, err := fsys.Seek(42, 0)
	assert.ErrorIs(t, err, rsfs.ErrBadDescriptor)
	assert.Equal(t, -1, pos)
}

func TestCut_Shrink(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(16, 4, 2, 4, 4))
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("0123456789"))
	require.NoError(t, err)

	_, err = fsys.Seek(fd, 4)
	require.NoError(t, err)

	n, err := fsys.Cut(fd, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 6, fileLength(t, fsys, "f"))

	buf := make([]byte, 8)
	n, err = fsys.Read(ctx, fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "45", string(buf[:n]))

	// Blocks are not reclaimed by cut.
	assert.Equal(t, 3, fsys.Stat().UsedBlocks)
	require.NoError(t, fsys.Verify())
}

func TestCut_GrowReadsZeros(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(16, 4, 2, 4, 4))
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, []byte("abc"))
	require.NoError(t, err)

	_, err = fsys.Seek(fd, 3)
	require.NoError(t, err)
	_, err = fsys.Cut(fd, 5)
	require.NoError(t, err)

	assert.Equal(t, 8, fileLength(t, fsys, "f"))
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00"), readAll(t, fsys, fd))
	require.NoError(t, fsys.Verify())

	// An append lands after the cut length, filling the missing block.
	_, err = fsys.Append(ctx, fd, []byte("Z"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00Z"), readAll(t, fsys, fd))
	require.NoError(t, fsys.Verify())
}

func TestCut_Errors(t *testing.T) {
	fsys := newFS(t, rsfs.WithCapacity(16, 4, 2, 4, 4))

	rw := createOpen(t, fsys, "f", rsfs.ReadWrite)

	_, err := fsys.Cut(rw, 0)
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)

	_, err = fsys.Cut(rw, 17)
	assert.ErrorIs(t, err, rsfs.ErrInvalidArgument)

	n, err := fsys.Cut(rw, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	require.NoError(t, fsys.Close(rw))

	ro, err := fsys.Open("f", rsfs.ReadOnly)
	require.NoError(t, err)
	_, err = fsys.Cut(ro, 1)
	assert.ErrorIs(t, err, rsfs.ErrReadOnly)

	_, err = fsys.Cut(-3, 1)
	assert.ErrorIs(t, err, rsfs.ErrBadDescriptor)
}

func TestClose(t *testing.T) {
	fsys := newFS(t)

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	assert.Equal(t, 1, fsys.Stat().OpenFiles)

	require.NoError(t, fsys.Close(fd))
	assert.Zero(t, fsys.Stat().OpenFiles)

	err := fsys.Close(fd)
	assert.ErrorIs(t, err, rsfs.ErrBadDescriptor)
	assert.Equal(t, -1, rsfs.Code(err))

	assert.ErrorIs(t, fsys.Close(-1), rsfs.ErrBadDescriptor)
	assert.ErrorIs(t, fsys.Close(1<<20), rsfs.ErrBadDescriptor)

	_, err = fsys.Read(t.Context(), fd, make([]byte, 1))
	assert.ErrorIs(t, err, rsfs.ErrBadDescriptor)
}

func TestDelete(t *testing.T) {
	fsys := newFS(t)
	ctx := t.Context()

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	_, err := fsys.Append(ctx, fd, make([]byte, 100))
	require.NoError(t, err)
	require.Equal(t, 4, fsys.Stat().UsedBlocks)

	err = fsys.Delete("f")
	assert.ErrorIs(t, err, rsfs.ErrBusy)
	assert.Equal(t, -1, rsfs.Code(err))

	require.NoError(t, fsys.Close(fd))
	require.NoError(t, fsys.Delete("f"))

	r := fsys.Stat()
	assert.Empty(t, r.Files)
	assert.Zero(t, r.UsedBlocks)
	assert.Zero(t, r.UsedInodes)

	_, err = fsys.Open("f", rsfs.ReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrNotFound)

	err = fsys.Delete("f")
	assert.ErrorIs(t, err, rsfs.ErrNotFound)
	assert.Equal(t, -1, rsfs.Code(err))

	// The name is free again and the new file starts empty.
	fd = createOpen(t, fsys, "f", rsfs.ReadOnly)
	n, err := fsys.Read(ctx, fd, make([]byte, 10))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, fsys.Verify())
}

func TestDelete_BusyWithReadOnlyDescriptor(t *testing.T) {
	fsys := newFS(t)

	fd := createOpen(t, fsys, "f", rsfs.ReadOnly)
	assert.ErrorIs(t, fsys.Delete("f"), rsfs.ErrBusy)

	require.NoError(t, fsys.Create("g"))
	require.NoError(t, fsys.Delete("g"), "other files are unaffected")

	require.NoError(t, fsys.Close(fd))
	require.NoError(t, fsys.Delete("f"))
}

func TestUnmount(t *testing.T) {
	fsys, err := rsfs.New()
	require.NoError(t, err)

	fd := createOpen(t, fsys, "f", rsfs.ReadWrite)
	require.NoError(t, fsys.Unmount())

	assert.ErrorIs(t, fsys.Unmount(), rsfs.ErrClosed)
	assert.ErrorIs(t, fsys.Create("g"), rsfs.ErrClosed)
	_, err = fsys.Open("f", rsfs.ReadOnly)
	assert.ErrorIs(t, err, rsfs.ErrClosed)
	_, err = fsys.Append(t.Context(), fd, []byte("x"))
	assert.ErrorIs(t, err, rsfs.ErrClosed)
	assert.ErrorIs(t, fsys.Delete("f"), rsfs.ErrClosed)
	assert.ErrorIs(t, fsys.Verify(), rsfs.ErrClosed)

	// Descriptors can still be released.
	require.NoError(t, fsys.Close(fd))
	assert.ErrorIs(t, fsys.Close(fd), rsfs.ErrBadDescriptor)

	var nilFS *rsfs.FS
	assert.NoError(t, nilFS.Unmount())
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{rsfs.ErrNoInode, -2},
		{rsfs.ErrNoDescriptor, -1},
		{rsfs.ErrAlreadyExists, -1},
		{rsfs.ErrNotFound, -1},
		{rsfs.ErrBusy, -1},
		{rsfs.ErrBadDescriptor, -1},
		{rsfs.ErrReadOnly, -1},
		{rsfs.ErrClosed, -1},
		{context.Canceled, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rsfs.Code(tt.err), "%v", tt.err)
	}
}
