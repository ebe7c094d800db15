package rsfs

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rsfs/internal/block"
	"github.com/hupe1980/rsfs/internal/dir"
	"github.com/hupe1980/rsfs/internal/filetable"
	"github.com/hupe1980/rsfs/internal/inode"
	"github.com/hupe1980/rsfs/internal/resource"
)

var (
	// ErrInvalidArgument is returned for a bad descriptor, size, offset, mode or name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBadDescriptor is returned for an out-of-range or closed descriptor.
	ErrBadDescriptor = fmt.Errorf("%w: bad file descriptor", ErrInvalidArgument)

	// ErrReadOnly is returned when a mutating call uses a ReadOnly descriptor.
	ErrReadOnly = fmt.Errorf("%w: descriptor is read-only", ErrInvalidArgument)

	// ErrNotFound is returned when a file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists is returned when creating a file that exists.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrResourceExhausted is returned when a fixed pool has no free slot.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrNoInode is returned by Create when every inode is in use.
	ErrNoInode = fmt.Errorf("%w: no free inode", ErrResourceExhausted)

	// ErrNoDescriptor is returned by Open when the open file table is full.
	ErrNoDescriptor = fmt.Errorf("%w: open file table full", ErrResourceExhausted)

	// ErrBusy is returned when deleting a file that is open.
	ErrBusy = errors.New("file is open")

	// ErrClosed is returned by every call after Unmount.
	ErrClosed = errors.New("file system unmounted")

	// ErrCorrupt is returned when an internal invariant does not hold.
	ErrCorrupt = errors.New("file system corrupt")

	// ErrMemoryLimitExceeded is returned by New when the block pool does not
	// fit the configured memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, filetable.ErrBadDescriptor):
		return fmt.Errorf("%w: %w", ErrBadDescriptor, err)
	case errors.Is(err, filetable.ErrTableFull):
		return fmt.Errorf("%w: %w", ErrNoDescriptor, err)
	case errors.Is(err, filetable.ErrRemoved), errors.Is(err, dir.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, dir.ErrExists):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case errors.Is(err, block.ErrInvalidBlock), errors.Is(err, inode.ErrInvalidInode):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return err
}

// Code maps an error returned by this package to the integer return
// convention: 0 for nil, -2 for ErrNoInode and -1 for everything else.
func Code(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoInode):
		return -2
	default:
		return -1
	}
}
