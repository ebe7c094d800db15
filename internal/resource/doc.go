// Package resource implements the Controller that governs the simulated
// device's resources.
//
//	┌───────────────────────────────────────────────┐
//	│                  Controller                   │
//	├──────────────────────┬────────────────────────┤
//	│  Memory budget       │  Disk bandwidth        │
//	│  (fail-fast)         │  (token bucket)        │
//	├──────────────────────┼────────────────────────┤
//	│  Reserve             │  Transfer              │
//	│  Release             │  Throttled             │
//	│  Reserved, Limit     │                        │
//	└──────────────────────┴────────────────────────┘
//
// # Memory Budget
//
// The block pool is reserved against the budget when a file system is
// created. Reserve never blocks; it returns ErrMemoryLimitExceeded if
// the reservation does not fit:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
//	if err := rc.Reserve(poolBytes); err != nil {
//	    // the pool does not fit
//	}
//	defer rc.Release(poolBytes)
//
// # Disk Bandwidth
//
// When IOLimitBytesPerSec is set, data transfers wait on a token bucket so the
// in-memory device behaves like a slow disk under concurrent load:
//
//	if err := rc.Transfer(ctx, len(buf)); err != nil {
//	    return err // context cancelled
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
