package workload

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrTooManyFailures aborts a phase when sustained I/O errors exceed the
// failure threshold. Individual failures below the threshold are recorded
// as failed samples and the phase continues.
var ErrTooManyFailures = errors.New("too many I/O failures")

const defaultFailureWindow = 16

// RunInfo describes how a phase actually ran.
type RunInfo struct {
	// Elapsed is measured from the first operation's start to the last
	// operation's completion. Zero if no operation was issued.
	Elapsed time.Duration
	// Direct reports whether uncached I/O was in effect. False means the
	// platform or filesystem refused the direct open and buffered I/O
	// was used; cache effects are then only mitigated by scratch sizing
	// and offset variation.
	Direct bool
}

// Run drives the phase against a prepared scratch file until the duration
// elapses or ctx is cancelled, emitting one Sample per operation through
// observe in completion order. Cancellation is honored between operations,
// never mid-operation.
func Run(ctx context.Context, p Params, s *Scratch, observe func(Sample)) (RunInfo, error) {
	iss, direct, err := newIssuer(p.Engine, s.Path, p.Phase.Writes(), p.Direct)
	if err != nil {
		return RunInfo{}, fmt.Errorf("open scratch file: %w", err)
	}
	defer iss.Close()

	elapsed, err := drive(ctx, p, s.Size, iss, observe)
	return RunInfo{Elapsed: elapsed, Direct: direct}, err
}

// drive is the operation loop, split from Run so tests can inject an
// Issuer that fails on demand.
func drive(ctx context.Context, p Params, extent int64, iss Issuer, observe func(Sample)) (time.Duration, error) {
	bs := p.blockSize()
	maxBlocks := extent / int64(bs)
	if maxBlocks <= 0 {
		return 0, fmt.Errorf("scratch file too small for block size %d", bs)
	}

	buf, release := alignedBuf(bs)
	defer release()
	if p.Phase.Writes() {
		if _, err := crand.Read(buf); err != nil {
			return 0, fmt.Errorf("generate write data: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	window := newFailureWindow(p.FailureWindow)

	var (
		start time.Time
		seq   int64
	)
	elapsed := func() time.Duration {
		if start.IsZero() {
			return 0
		}
		return time.Since(start)
	}

	for {
		if !start.IsZero() && time.Since(start) >= p.Duration {
			return elapsed(), nil
		}
		select {
		case <-ctx.Done():
			return elapsed(), ctx.Err()
		default:
		}

		var off int64
		if p.Phase.Random() {
			off = rng.Int63n(maxBlocks) * int64(bs)
		} else {
			off = (seq % maxBlocks) * int64(bs)
			seq++
		}

		// The timed window starts at the first operation, not at
		// phase entry.
		if start.IsZero() {
			start = time.Now()
		}

		sample := timeOp(iss, p.Phase.Writes(), buf, off)
		observe(sample)

		window.record(sample.Err == nil)
		if window.tripped() {
			return elapsed(), ErrTooManyFailures
		}
	}
}

// failureWindow tracks the outcome of recent operations. The phase aborts
// once more than half the operations in a full-enough window have failed;
// a handful of early failures must not kill a phase that would recover.
type failureWindow struct {
	ring  []bool // true = failure
	n     int    // population, saturates at len(ring)
	next  int
	fails int
}

func newFailureWindow(size int) *failureWindow {
	if size <= 0 {
		size = defaultFailureWindow
	}
	return &failureWindow{ring: make([]bool, size)}
}

func (w *failureWindow) record(ok bool) {
	if w.n == len(w.ring) && w.ring[w.next] {
		w.fails--
	}
	w.ring[w.next] = !ok
	if !ok {
		w.fails++
	}
	w.next = (w.next + 1) % len(w.ring)
	if w.n < len(w.ring) {
		w.n++
	}
}

func (w *failureWindow) tripped() bool {
	return w.n >= len(w.ring)/2 && w.fails*2 > w.n
}
