package inode

import (
	"context"
	"sync"
)

// Gate admits either many readers or a single writer. A reader is admitted
// whenever no writer holds the gate, even if writers are waiting; a writer
// waits until the gate has no holder at all.
type Gate struct {
	mu      sync.Mutex
	readers int
	writer  bool
	wake    chan struct{} // closed and replaced on every release
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{wake: make(chan struct{})}
}

// AcquireRead blocks until no writer holds the gate.
func (g *Gate) AcquireRead(ctx context.Context) error {
	return g.acquire(ctx, false)
}

// AcquireWrite blocks until the gate has no other holder.
func (g *Gate) AcquireWrite(ctx context.Context) error {
	return g.acquire(ctx, true)
}

// TryAcquireRead acquires a read share without blocking.
func (g *Gate) TryAcquireRead() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitLocked(false)
}

// TryAcquireWrite acquires exclusive access without blocking.
func (g *Gate) TryAcquireWrite() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitLocked(true)
}

func (g *Gate) acquire(ctx context.Context, write bool) error {
	for {
		g.mu.Lock()
		if g.admitLocked(write) {
			g.mu.Unlock()
			return nil
		}
		wake := g.wake
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gate) admitLocked(write bool) bool {
	switch {
	case g.writer:
		return false
	case write && g.readers > 0:
		return false
	case write:
		g.writer = true
	default:
		g.readers++
	}
	return true
}

// ReleaseRead returns a read share and wakes waiters.
func (g *Gate) ReleaseRead() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.readers == 0 {
		panic("inode: gate read release without holder")
	}
	g.readers--
	if g.readers == 0 {
		g.broadcastLocked()
	}
}

// ReleaseWrite returns exclusive access and wakes waiters.
func (g *Gate) ReleaseWrite() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.writer {
		panic("inode: gate write release without holder")
	}
	g.writer = false
	g.broadcastLocked()
}

func (g *Gate) broadcastLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}
