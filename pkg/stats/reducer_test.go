package stats

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spindlebench/spindle/pkg/workload"
)

func TestLatencyOrdering(t *testing.T) {
	red := NewReducer(workload.RandomRead)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		red.Observe(workload.Sample{
			Bytes:   4096,
			Elapsed: time.Duration(1+rng.Intn(20000)) * time.Microsecond,
		})
	}
	res := red.Finalize(workload.RunInfo{Elapsed: 2 * time.Second})

	lat := res.Latency
	require.LessOrEqual(t, lat.Min, lat.P50)
	require.LessOrEqual(t, lat.P50, lat.P95)
	require.LessOrEqual(t, lat.P95, lat.P99)
	require.LessOrEqual(t, lat.P99, lat.Max)
	require.LessOrEqual(t, lat.Min, lat.Avg)
	require.LessOrEqual(t, lat.Avg, lat.Max)
}

func TestFinalizeIdempotent(t *testing.T) {
	red := NewReducer(workload.SequentialWrite)
	for i := 0; i < 100; i++ {
		red.Observe(workload.Sample{Bytes: 1 << 20, Elapsed: time.Duration(i+1) * time.Millisecond})
	}
	info := workload.RunInfo{Elapsed: time.Second, Direct: true}

	first := red.Finalize(info)
	second := red.Finalize(info)
	require.Equal(t, first, second)
}

func TestFailuresExcludedFromLatency(t *testing.T) {
	red := NewReducer(workload.RandomWrite)
	red.Observe(workload.Sample{Bytes: 4096, Elapsed: 1 * time.Millisecond})
	red.Observe(workload.Sample{Bytes: 4096, Elapsed: 2 * time.Millisecond})
	// A pathologically slow failure must not stretch the distribution.
	red.Observe(workload.Sample{Elapsed: 10 * time.Second, Err: errors.New("io error")})

	res := red.Finalize(workload.RunInfo{Elapsed: time.Second})
	require.Equal(t, int64(2), res.Ops)
	require.Equal(t, int64(1), res.Errors)
	require.Less(t, res.Latency.Max, 10.0, "failed sample leaked into latency stats")
}

func TestThroughputUnits(t *testing.T) {
	seq := NewReducer(workload.SequentialRead)
	for i := 0; i < 10; i++ {
		seq.Observe(workload.Sample{Bytes: 1 << 20, Elapsed: time.Millisecond})
	}
	seqRes := seq.Finalize(workload.RunInfo{Elapsed: time.Second})
	require.Equal(t, "MBps", seqRes.Unit)
	require.InDelta(t, 10.0, seqRes.Throughput, 0.01)

	rnd := NewReducer(workload.RandomRead)
	for i := 0; i < 500; i++ {
		rnd.Observe(workload.Sample{Bytes: 4096, Elapsed: time.Millisecond})
	}
	rndRes := rnd.Finalize(workload.RunInfo{Elapsed: time.Second})
	require.Equal(t, "IOPS", rndRes.Unit)
	require.InDelta(t, 500.0, rndRes.Throughput, 0.01)
}

func TestEmptyReducer(t *testing.T) {
	red := NewReducer(workload.SequentialRead)
	res := red.Finalize(workload.RunInfo{})
	require.Zero(t, res.Ops)
	require.Zero(t, res.Throughput)
	require.Zero(t, res.Latency)
}
