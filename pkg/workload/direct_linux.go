//go:build linux

package workload

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDirect opens the file with O_DIRECT, bypassing the page cache.
// Not every filesystem supports it (tmpfs notably does not); callers fall
// back to buffered I/O when this fails.
func openDirect(path string, write bool) (*os.File, bool) {
	flags := unix.O_RDONLY | unix.O_DIRECT
	if write {
		flags = unix.O_RDWR | unix.O_DIRECT
	}
	fd, err := unix.Open(path, flags, 0o644)
	if err != nil {
		return nil, false
	}
	return os.NewFile(uintptr(fd), path), true
}

// alignedBuf allocates a page-aligned buffer as O_DIRECT requires.
func alignedBuf(size int) ([]byte, func()) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, size), func() {}
	}
	return buf, func() { unix.Munmap(buf) }
}

// dropCache asks the kernel to evict the file's cached pages. Best effort;
// only matters when the direct open fell back to buffered I/O.
func dropCache(f *os.File, size int64) {
	_ = unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_DONTNEED)
}
