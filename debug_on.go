//go:build rsfsdebug

package rsfs

const debugInvariants = true
