// Package stats reduces per-operation latency samples into a bounded-memory
// phase summary. Percentiles come from an HDR histogram, so memory use is
// fixed regardless of how long a phase runs.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/spindlebench/spindle/pkg/workload"
)

// Histogram bounds: 1 microsecond to 1 hour, 3 significant figures.
// Matches the resolution a single I/O operation can plausibly need.
const (
	histMinUs  = 1
	histMaxUs  = 3600000000
	histSigFig = 3
)

// Latency summarizes the distribution of successful operation latencies,
// in milliseconds.
type Latency struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// PhaseResult is the immutable summary of one completed phase. It is
// constructed by Finalize and never mutated afterwards.
type PhaseResult struct {
	Phase      workload.Phase
	Ops        int64
	Errors     int64
	Bytes      int64
	Elapsed    time.Duration
	Throughput float64 // MB/s for sequential phases, ops/s for random
	Unit       string  // "MBps" or "IOPS"
	Latency    Latency
	Direct     bool
	Partial    bool // phase was cut short by cancellation
}

// Reducer consumes the sample stream of a single phase. It is owned by the
// phase's execution path; there are no concurrent writers, so it carries
// no locking.
type Reducer struct {
	phase workload.Phase
	hist  *hdrhistogram.Histogram
	ok    int64
	fails int64
	bytes int64
}

func NewReducer(phase workload.Phase) *Reducer {
	return &Reducer{
		phase: phase,
		hist:  hdrhistogram.New(histMinUs, histMaxUs, histSigFig),
	}
}

// Observe folds one sample into the running aggregates. Failed operations
// count toward the error total only; they never pollute the latency
// distribution.
func (r *Reducer) Observe(s workload.Sample) {
	if s.Err != nil {
		r.fails++
		return
	}
	r.ok++
	r.bytes += int64(s.Bytes)

	us := s.Elapsed.Microseconds()
	if us < histMinUs {
		us = histMinUs
	} else if us > histMaxUs {
		us = histMaxUs
	}
	r.hist.RecordValue(us)
}

// Finalize reduces the accumulated state into a PhaseResult. It reads but
// never mutates the aggregates, so calling it twice yields identical
// results.
func (r *Reducer) Finalize(info workload.RunInfo) PhaseResult {
	res := PhaseResult{
		Phase:   r.phase,
		Ops:     r.ok,
		Errors:  r.fails,
		Bytes:   r.bytes,
		Elapsed: info.Elapsed,
		Direct:  info.Direct,
	}

	if r.phase.Random() {
		res.Unit = "IOPS"
		if info.Elapsed > 0 {
			res.Throughput = float64(r.ok) / info.Elapsed.Seconds()
		}
	} else {
		res.Unit = "MBps"
		if info.Elapsed > 0 {
			res.Throughput = float64(r.bytes) / info.Elapsed.Seconds() / (1 << 20)
		}
	}

	if r.ok > 0 {
		res.Latency = Latency{
			Min: usToMs(r.hist.Min()),
			Avg: r.hist.Mean() / 1000,
			Max: usToMs(r.hist.Max()),
			P50: usToMs(r.hist.ValueAtQuantile(50)),
			P95: usToMs(r.hist.ValueAtQuantile(95)),
			P99: usToMs(r.hist.ValueAtQuantile(99)),
		}
	}
	return res
}

func usToMs(us int64) float64 {
	return float64(us) / 1000
}
