package workload

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const scratchPrefix = ".spindle_bench_"

// Scratch is the temporary file a phase runs against. It exists only for
// the lifetime of one phase; Remove must be called on every exit path.
type Scratch struct {
	Path string
	Size int64
}

// Prepare creates the scratch file for a phase. Read phases get a file
// fully written with random data so reads hit real extents; Sequential
// Write only needs the extent as a wrap bound and fills it during the
// phase itself. Preparation time is not part of the timed window.
func Prepare(ctx context.Context, p Params) (*Scratch, error) {
	path := filepath.Join(p.Dir, scratchPrefix+p.Phase.Key())
	size := p.scratchBytes()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	s := &Scratch{Path: path, Size: size}
	if err := fill(ctx, f, p, size); err != nil {
		f.Close()
		s.Remove()
		return nil, err
	}
	if err := f.Close(); err != nil {
		s.Remove()
		return nil, fmt.Errorf("close scratch file: %w", err)
	}
	return s, nil
}

func fill(ctx context.Context, f *os.File, p Params, size int64) error {
	if p.Phase == SequentialWrite {
		if err := f.Truncate(size); err != nil {
			return fmt.Errorf("size scratch file: %w", err)
		}
		return nil
	}

	buf := make([]byte, 1<<20)
	if _, err := crand.Read(buf); err != nil {
		return fmt.Errorf("generate scratch data: %w", err)
	}
	var written int64
	for written < size {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := buf
		if remain := size - written; remain < int64(len(buf)) {
			chunk = buf[:remain]
		}
		n, err := f.Write(chunk)
		if err != nil {
			return fmt.Errorf("fill scratch file: %w", err)
		}
		written += int64(n)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync scratch file: %w", err)
	}
	dropCache(f, size)
	return nil
}

// Remove deletes the scratch file. A missing file is not an error.
func (s *Scratch) Remove() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove scratch file %s: %w", s.Path, err)
	}
	return nil
}
