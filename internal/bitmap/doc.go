// Package bitmap provides the free/used allocation bitmap shared by the block
// store and the inode table.
//
// An Allocator tracks a fixed universe of slots, one bit per slot
// (0 = free, 1 = used). Allocation scans for the lowest clear bit and flips it
// while holding the allocator lock, so two concurrent callers never receive
// the same slot:
//
//	a := bitmap.New(64)
//	i := a.Alloc() // -1 when exhausted
//	if err := a.Free(i); err != nil {
//	    // double free or out of range
//	}
//
// The lock is held only for the scan-and-flip, never across the use of the
// slot by the caller.
package bitmap
