//go:build !rsfsdebug

package rsfs

// debugInvariants makes invariant violations fatal. Build with -tags rsfsdebug
// to enable.
const debugInvariants = false
