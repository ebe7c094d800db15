package rsfs

import (
	"context"
	"fmt"
	"io"
)

// File is an open descriptor wrapped in the standard io interfaces.
//
// A File must not be used after Close. Its methods use a background context,
// so with an IO limit configured they wait for bandwidth without a deadline;
// use the FS methods with the descriptor from Fd for cancellable transfers.
type File struct {
	fs   *FS
	fd   int
	name string
	mode Mode
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// OpenFile opens name and returns it as a File. It blocks like OpenContext.
func (fs *FS) OpenFile(ctx context.Context, name string, mode Mode) (*File, error) {
	fd, err := fs.OpenContext(ctx, name, mode)
	if err != nil {
		return nil, err
	}
	return &File{fs: fs, fd: fd, name: name, mode: mode}, nil
}

// Name returns the name the file was opened with.
func (f *File) Name() string { return f.name }

// Fd returns the underlying descriptor.
func (f *File) Fd() int { return f.fd }

// Mode returns the access mode.
func (f *File) Mode() Mode { return f.mode }

// Read implements io.Reader. It returns io.EOF at the end of the file.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.fs.Read(context.Background(), f.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer. A short write caused by exhausted space
// returns io.ErrShortWrite.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.fs.Write(context.Background(), f.fd, p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Append writes p at the end of the file without moving the cursor.
func (f *File) Append(p []byte) (int, error) {
	n, err := f.fs.Append(context.Background(), f.fd, p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek implements io.Seeker. Unlike FS.Seek, a target outside
// [0, length] is reported as an error wrapping ErrInvalidArgument.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		pos, err := f.fs.Seek(f.fd, -1) // out of range: reports the cursor
		if err != nil {
			return 0, err
		}
		base = pos
	case io.SeekEnd:
		length, err := f.fs.size(f.fd)
		if err != nil {
			return 0, err
		}
		base = length
	default:
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}

	target := int64(base) + offset
	pos, err := f.fs.Seek(f.fd, int(target))
	if err != nil {
		return 0, err
	}
	if int64(pos) != target {
		return int64(pos), fmt.Errorf("%w: offset %d outside file", ErrInvalidArgument, target)
	}
	return target, nil
}

// Truncate cuts the file to cursor + size.
func (f *File) Truncate(size int) error {
	_, err := f.fs.Cut(f.fd, size)
	return err
}

// Size returns the current file length.
func (f *File) Size() (int, error) {
	return f.fs.size(f.fd)
}

// Close releases the descriptor.
func (f *File) Close() error {
	return f.fs.Close(f.fd)
}
