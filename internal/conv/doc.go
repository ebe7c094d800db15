// Package conv provides checked integer conversions between the int indices
// used throughout the file system (block, inode and descriptor numbers) and
// the uint32 keys of roaring bitmaps.
package conv
