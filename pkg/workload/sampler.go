package workload

import (
	"io"
	"time"
)

// timeOp issues one operation and produces its Sample. The timer brackets
// the call as tightly as possible; time.Now carries the monotonic clock,
// so wall-clock adjustments cannot skew a sample. A short read at the end
// of the extent still counts the bytes actually transferred.
func timeOp(iss Issuer, write bool, buf []byte, off int64) Sample {
	var (
		n   int
		err error
	)
	start := time.Now()
	if write {
		n, err = iss.WriteAt(buf, off)
	} else {
		n, err = iss.ReadAt(buf, off)
	}
	elapsed := time.Since(start)

	if err == io.EOF && n > 0 {
		err = nil
	}
	return Sample{Bytes: n, Elapsed: elapsed, Err: err}
}
