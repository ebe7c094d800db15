package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation does not fit the budget.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds the limits of the simulated device.
type Config struct {
	// MemoryLimitBytes caps the bytes that may be reserved for block pools.
	// If 0, reservations are only tracked.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec is the device bandwidth shared by all transfers.
	// If 0, transfers are not throttled.
	IOLimitBytesPerSec int64
}

// Controller accounts the simulated device: the bytes reserved for block
// pools and the bandwidth that data transfers draw from.
type Controller struct {
	limit    int64
	budget   *semaphore.Weighted // nil if unlimited
	reserved atomic.Int64

	bandwidth *rate.Limiter // nil if unthrottled
	burst     int
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{limit: cfg.MemoryLimitBytes}

	if cfg.MemoryLimitBytes > 0 {
		c.budget = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	// One second of bandwidth may be spent at once.
	if cfg.IOLimitBytesPerSec > 0 {
		c.burst = int(cfg.IOLimitBytesPerSec)
		c.bandwidth = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), c.burst)
	}

	return c
}

// Reserve takes bytes from the memory budget. It never blocks.
func (c *Controller) Reserve(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(bytes) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d reserved",
			ErrMemoryLimitExceeded, bytes, c.reserved.Load(), c.limit)
	}
	c.reserved.Add(bytes)
	return nil
}

// Release returns bytes taken by Reserve.
func (c *Controller) Release(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.budget != nil {
		c.budget.Release(bytes)
	}
	c.reserved.Add(-bytes)
}

// Reserved returns the bytes currently reserved.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Limit returns the memory budget, 0 if unlimited.
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.limit
}

// Throttled reports whether transfers are rate limited.
func (c *Controller) Throttled() bool {
	return c != nil && c.bandwidth != nil
}

// Transfer waits until the device can move bytes. Transfers larger than one
// burst are paid for in burst-sized installments.
func (c *Controller) Transfer(ctx context.Context, bytes int) error {
	if !c.Throttled() {
		return nil
	}
	for bytes > 0 {
		n := min(bytes, c.burst)
		if err := c.bandwidth.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
