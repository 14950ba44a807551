//go:build darwin

package workload

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDirect opens the file and disables caching with F_NOCACHE, the
// closest macOS equivalent of O_DIRECT.
func openDirect(path string, write bool) (*os.File, bool) {
	var (
		f   *os.File
		err error
	)
	if write {
		f, err = os.OpenFile(path, os.O_RDWR, 0)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, false
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1); err != nil {
		f.Close()
		return nil, false
	}
	return f, true
}

// F_NOCACHE has no alignment requirement.
func alignedBuf(size int) ([]byte, func()) {
	return make([]byte, size), func() {}
}

func dropCache(f *os.File, size int64) {
	_, _ = unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1)
}
