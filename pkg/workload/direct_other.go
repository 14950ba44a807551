//go:build !linux && !darwin

package workload

import "os"

// No uncached I/O on this platform. The scratch-file sizing policy and
// fresh random offsets are the only cache mitigation available; results
// may include page-cache effects.
func openDirect(path string, write bool) (*os.File, bool) {
	return nil, false
}

func alignedBuf(size int) ([]byte, func()) {
	return make([]byte, size), func() {}
}

func dropCache(f *os.File, size int64) {}
