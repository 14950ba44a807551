//go:build linux

package workload

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/godzie44/go-uring/uring"
)

// uringIssuer submits operations through io_uring. The ring is sized for a
// single entry: one SQE is queued, submitted, and reaped per operation, so
// per-operation latency attribution is exact.
type uringIssuer struct {
	f    *os.File
	ring *uring.Ring
}

func newURingIssuer(path string, write, direct bool) (Issuer, bool, error) {
	var (
		f        *os.File
		isDirect bool
	)
	if direct {
		f, isDirect = openDirect(path, write)
	}
	if f == nil {
		flags := os.O_RDONLY
		if write {
			flags = os.O_RDWR
		}
		var err error
		f, err = os.OpenFile(path, flags, 0)
		if err != nil {
			return nil, false, err
		}
	}

	ring, err := uring.New(1)
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("failed to set up io_uring: %w", err)
	}
	return &uringIssuer{f: f, ring: ring}, isDirect, nil
}

func (u *uringIssuer) ReadAt(p []byte, off int64) (int, error) {
	return u.submit(uring.Read(u.f.Fd(), p, uint64(off)))
}

func (u *uringIssuer) WriteAt(p []byte, off int64) (int, error) {
	return u.submit(uring.Write(u.f.Fd(), p, uint64(off)))
}

func (u *uringIssuer) submit(op uring.Operation) (int, error) {
	if err := u.ring.QueueSQE(op, 0, 0); err != nil {
		return 0, err
	}
	for {
		_, err := u.ring.Submit()
		if err == nil {
			break
		}
		if !isEINTR(err) {
			return 0, err
		}
	}

	var (
		cqe *uring.CQEvent
		err error
	)
	for {
		cqe, err = u.ring.WaitCQEvents(1)
		if err == nil || !isEINTR(err) {
			break
		}
	}
	if err != nil {
		return 0, err
	}
	defer u.ring.SeenCQE(cqe)

	if cqe.Res < 0 {
		return 0, syscall.Errno(-cqe.Res)
	}
	return int(cqe.Res), nil
}

func (u *uringIssuer) Close() error {
	ringErr := u.ring.Close()
	if err := u.f.Close(); err != nil {
		return err
	}
	return ringErr
}

func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EINTR) {
		return true
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return sysErr.Err == syscall.EINTR
	}
	return false
}
