package workload

import (
	"fmt"
	"os"
)

// Issuer submits individual I/O operations against the scratch file.
// Implementations must be safe for strictly sequential use from a single
// goroutine; the generator never has more than one operation in flight.
type Issuer interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// newIssuer opens the scratch file with the requested engine. The returned
// bool reports whether uncached I/O is actually in effect; a direct open
// that the platform or filesystem refuses falls back to buffered I/O.
func newIssuer(engine, path string, write, direct bool) (Issuer, bool, error) {
	switch engine {
	case "", "sync":
		return newSyncIssuer(path, write, direct)
	case "uring":
		return newURingIssuer(path, write, direct)
	}
	return nil, false, fmt.Errorf("unknown I/O engine %q", engine)
}

type syncIssuer struct {
	f *os.File
}

func newSyncIssuer(path string, write, direct bool) (Issuer, bool, error) {
	if direct {
		if f, ok := openDirect(path, write); ok {
			return &syncIssuer{f: f}, true, nil
		}
	}
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, false, err
	}
	return &syncIssuer{f: f}, false, nil
}

func (s *syncIssuer) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *syncIssuer) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *syncIssuer) Close() error {
	return s.f.Close()
}
