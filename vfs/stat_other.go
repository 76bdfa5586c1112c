//go:build !linux

package vfs

import "io/fs"

// sysInode is unavailable on this platform; callers fall back to a
// synthetic inode.
func sysInode(fs.FileInfo) (uint64, bool) {
	return 0, false
}

// sysTimes is unavailable on this platform; callers fall back to the
// modification time.
func sysTimes(fs.FileInfo) (atime, atimeNano, ctime, ctimeNano int64, ok bool) {
	return 0, 0, 0, 0, false
}
