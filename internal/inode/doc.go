// Package inode implements the fixed inode pool.
//
// Each Inode holds a file's length and an ordered array of block pointers
// (NoBlock marks an unused slot). An RWMutex on the inode guards both.
//
// Each Inode also owns a Gate that enforces the open policy for its file:
// any number of read-only openers, or exactly one read-write opener. A
// read-only open is admitted whenever no writer holds the gate, including
// while a writer waits; a writer is admitted once the last holder releases.
// Waits honour context cancellation.
package inode
