package rsfs

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/rsfs/internal/filetable"
)

// Mode is the access mode passed to Open.
type Mode = filetable.Mode

const (
	// ReadOnly opens a file for read and seek. Any number of ReadOnly
	// descriptors may be open on a file at once.
	ReadOnly = filetable.ReadOnly

	// ReadWrite opens a file for read, seek, write, append and cut. A ReadWrite
	// descriptor excludes every other descriptor on the same file.
	ReadWrite = filetable.ReadWrite
)

// Options configures a file system. Capacities are fixed for the lifetime of
// the instance.
type Options struct {
	// NumBlocks is the number of data blocks in the pool.
	NumBlocks int

	// BlockSize is the size of a data block in bytes.
	BlockSize int

	// NumInodes is the number of inodes, which bounds the number of files.
	NumInodes int

	// NumPointers is the number of block pointers per inode.
	// The maximum file size is NumPointers * BlockSize.
	NumPointers int

	// NumOpenFiles is the number of open file table slots.
	NumOpenFiles int

	// MemoryLimitBytes caps the block pool size. New fails with
	// ErrMemoryLimitExceeded if NumBlocks * BlockSize exceeds it.
	// If 0, no limit is enforced.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec throttles read, write and append to simulate a slow
	// disk. If 0, transfers are not throttled.
	IOLimitBytesPerSec int64

	// Logger receives structured operation logs. If nil, logging is disabled.
	Logger *slog.Logger

	// Metrics receives operation metrics. If nil, NoopMetricsCollector is used.
	Metrics MetricsCollector
}

// DefaultOptions contains the default options.
var DefaultOptions = Options{
	NumBlocks:    64,
	BlockSize:    32,
	NumInodes:    8,
	NumPointers:  8,
	NumOpenFiles: 16,
}

// WithLogger sets the logger used for operation logs.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) func(*Options) {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithCapacity sets the pool sizes in one call.
func WithCapacity(numBlocks, blockSize, numInodes, numPointers, numOpenFiles int) func(*Options) {
	return func(o *Options) {
		o.NumBlocks = numBlocks
		o.BlockSize = blockSize
		o.NumInodes = numInodes
		o.NumPointers = numPointers
		o.NumOpenFiles = numOpenFiles
	}
}

func (o Options) validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"NumBlocks", o.NumBlocks},
		{"BlockSize", o.BlockSize},
		{"NumInodes", o.NumInodes},
		{"NumPointers", o.NumPointers},
		{"NumOpenFiles", o.NumOpenFiles},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidArgument, c.name, c.value)
		}
	}
	if o.MemoryLimitBytes < 0 || o.IOLimitBytesPerSec < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidArgument)
	}
	return nil
}

// MaxFileSize returns the largest file size the options allow.
func (o Options) MaxFileSize() int {
	return o.NumPointers * o.BlockSize
}
