//go:build linux

package vfs

import (
	"io/fs"
	"syscall"
)

// sysInode extracts the inode from the platform stat structure.
func sysInode(info fs.FileInfo) (uint64, bool) {
	if sys, ok := info.Sys().(*syscall.Stat_t); ok && sys != nil {
		return sys.Ino, true
	}
	return 0, false
}

// sysTimes extracts access and change times from the platform stat
// structure.
func sysTimes(info fs.FileInfo) (atime, atimeNano, ctime, ctimeNano int64, ok bool) {
	sys, sysOK := info.Sys().(*syscall.Stat_t)
	if !sysOK || sys == nil {
		return 0, 0, 0, 0, false
	}
	return sys.Atim.Sec, sys.Atim.Nsec, sys.Ctim.Sec, sys.Ctim.Nsec, true
}
