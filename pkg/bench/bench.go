// Package bench sequences the four benchmark phases against a resolved
// target and assembles the final report. Phases run strictly one after
// another; running them concurrently on the same target would let
// cross-phase contention skew every measurement.
package bench

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spindlebench/spindle/pkg/report"
	"github.com/spindlebench/spindle/pkg/stats"
	"github.com/spindlebench/spindle/pkg/target"
	"github.com/spindlebench/spindle/pkg/workload"
)

// ErrPhaseFailed wraps a phase abort caused by sustained I/O errors.
// Results from phases that completed before the abort are preserved in
// the (incomplete) report.
var ErrPhaseFailed = errors.New("benchmark phase aborted")

// Progress is a live snapshot of the running phase, delivered to the
// presentation layer while a phase executes.
type Progress struct {
	Phase      workload.Phase
	Elapsed    time.Duration
	Fraction   float64 // elapsed portion of the phase duration, 0..1
	Throughput float64 // running MB/s or ops/s
	Unit       string
}

// Params configures a benchmark run.
type Params struct {
	Target        target.Target
	Duration      time.Duration // per phase
	Engine        string        // "sync" or "uring"
	Direct        bool
	SeqBlockSize  int   // 0 = default
	RandBlockSize int   // 0 = default
	ScratchBytes  int64 // 0 = default policy
	FailureWindow int

	// Progress, when set, receives snapshots roughly every 100ms.
	Progress func(Progress)
}

// Run executes the four phases in order and returns the report. The
// report is non-nil even on error: aborts and cancellation yield a
// best-effort partial report with Complete=false and the cause recorded.
// Scratch files are removed on every exit path.
func Run(ctx context.Context, p Params) (*report.Report, error) {
	if p.Duration <= 0 {
		p.Duration = 30 * time.Second
	}

	rep := &report.Report{
		Target:          p.Target,
		Timestamp:       time.Now().UTC(),
		DurationSeconds: int(p.Duration.Seconds()),
	}

	for _, ph := range workload.Phases {
		res, warn, err := runPhaseFn(ctx, ph, p)
		if warn != "" {
			rep.Warnings = append(rep.Warnings, warn)
		}
		switch {
		case err == nil:
			rep.SetPhase(res)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Cancellation keeps whatever was measured, explicitly
			// marked partial.
			if res.Ops > 0 || res.Errors > 0 {
				res.Partial = true
				rep.SetPhase(res)
			}
			rep.Cause = fmt.Sprintf("cancelled during %s", ph)
			return rep, err
		case errors.Is(err, workload.ErrTooManyFailures):
			// An aborted phase is dropped entirely; the report never
			// carries a half-populated phase.
			rep.Cause = fmt.Sprintf("%s: %v", ph, err)
			return rep, fmt.Errorf("%w: %s: %v", ErrPhaseFailed, ph, err)
		default:
			rep.Cause = fmt.Sprintf("%s: %v", ph, err)
			return rep, fmt.Errorf("%s: %w", ph, err)
		}
	}

	rep.Complete = true
	return rep, nil
}

// runPhaseFn is swapped out by tests that need to fail specific phases.
var runPhaseFn = runPhase

func runPhase(ctx context.Context, ph workload.Phase, p Params) (res stats.PhaseResult, warn string, err error) {
	wp := workload.Params{
		Phase:         ph,
		Dir:           p.Target.Path,
		Duration:      p.Duration,
		Engine:        p.Engine,
		Direct:        p.Direct,
		FileSize:      p.ScratchBytes,
		FreeBytes:     p.Target.FreeBytes,
		FailureWindow: p.FailureWindow,
	}
	if ph.Random() {
		wp.BlockSize = p.RandBlockSize
	} else {
		wp.BlockSize = p.SeqBlockSize
	}

	scratch, err := workload.Prepare(ctx, wp)
	if err != nil {
		return res, "", fmt.Errorf("prepare scratch: %w", err)
	}
	defer func() {
		// Cleanup failure is a warning, never a reason to discard
		// the statistics already collected.
		if rmErr := scratch.Remove(); rmErr != nil {
			warn = rmErr.Error()
		}
	}()

	red := stats.NewReducer(ph)
	var okOps, okBytes int64

	var (
		info   workload.RunInfo
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		info, runErr = workload.Run(ctx, wp, scratch, func(s workload.Sample) {
			red.Observe(s)
			if s.Err == nil {
				atomic.AddInt64(&okOps, 1)
				atomic.AddInt64(&okBytes, int64(s.Bytes))
			}
		})
	}()

	monitor(done, ph, p, &okOps, &okBytes)

	res = red.Finalize(info)
	return res, warn, runErr
}

// monitor emits progress snapshots until the phase finishes. It reads
// only the atomic counters; the reducer stays single-writer.
func monitor(done <-chan struct{}, ph workload.Phase, p Params, ops, bytes *int64) {
	if p.Progress == nil {
		<-done
		return
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			frac := elapsed.Seconds() / p.Duration.Seconds()
			if frac > 1 {
				frac = 1
			}
			snap := Progress{
				Phase:    ph,
				Elapsed:  elapsed,
				Fraction: frac,
			}
			if ph.Random() {
				snap.Unit = "IOPS"
				snap.Throughput = float64(atomic.LoadInt64(ops)) / elapsed.Seconds()
			} else {
				snap.Unit = "MBps"
				snap.Throughput = float64(atomic.LoadInt64(bytes)) / elapsed.Seconds() / (1 << 20)
			}
			p.Progress(snap)
		}
	}
}
