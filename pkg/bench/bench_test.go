package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spindlebench/spindle/pkg/stats"
	"github.com/spindlebench/spindle/pkg/target"
	"github.com/spindlebench/spindle/pkg/workload"
)

func testParams(dir string) Params {
	return Params{
		Target:        target.Target{Path: dir, FreeBytes: 1 << 30, TotalBytes: 1 << 30},
		Duration:      150 * time.Millisecond,
		Engine:        "sync",
		Direct:        false, // tmpfs in CI rejects O_DIRECT anyway
		SeqBlockSize:  4096,
		RandBlockSize: 4096,
		ScratchBytes:  1 << 20,
	}
}

func noScratchLeft(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".spindle_bench_*"))
	require.NoError(t, err)
	require.Empty(t, matches, "scratch artifacts left behind")
}

func TestRunComplete(t *testing.T) {
	dir := t.TempDir()
	rep, err := Run(context.Background(), testParams(dir))
	require.NoError(t, err)
	require.True(t, rep.Complete)
	require.Empty(t, rep.Cause)

	for _, ph := range workload.Phases {
		pr := rep.Phase(ph)
		require.NotNil(t, pr, "%s missing from complete report", ph)
		require.Zero(t, pr.Errors)
		require.Greater(t, pr.Throughput, 0.0)
		require.False(t, pr.Partial)

		lat := pr.LatencyMS
		require.LessOrEqual(t, lat.Min, lat.P50)
		require.LessOrEqual(t, lat.P50, lat.P95)
		require.LessOrEqual(t, lat.P95, lat.P99)
		require.LessOrEqual(t, lat.P99, lat.Max)
	}

	require.Equal(t, "MBps", rep.Phases.SequentialRead.Unit)
	require.Equal(t, "IOPS", rep.Phases.RandomWrite.Unit)
	noScratchLeft(t, dir)
}

func TestRunPhaseOrder(t *testing.T) {
	dir := t.TempDir()
	p := testParams(dir)

	var order []workload.Phase
	p.Progress = func(pr Progress) {
		if len(order) == 0 || order[len(order)-1] != pr.Phase {
			order = append(order, pr.Phase)
		}
	}
	_, err := Run(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, workload.Phases, order)
}

func TestCancellationYieldsPartialReport(t *testing.T) {
	dir := t.TempDir()
	p := testParams(dir)
	p.Duration = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	p.Progress = func(pr Progress) {
		// Let the first phase collect some samples, then interrupt.
		if pr.Elapsed > 200*time.Millisecond {
			cancel()
		}
	}

	rep, err := Run(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, rep.Complete)
	require.Contains(t, rep.Cause, "cancelled")

	first := rep.Phase(workload.SequentialRead)
	require.NotNil(t, first)
	require.True(t, first.Partial)
	// Later phases never ran.
	require.Nil(t, rep.Phases.RandomRead)
	require.Nil(t, rep.Phases.RandomWrite)
	noScratchLeft(t, dir)
}

func TestAbortPreservesCompletedPhases(t *testing.T) {
	orig := runPhaseFn
	defer func() { runPhaseFn = orig }()

	runPhaseFn = func(ctx context.Context, ph workload.Phase, p Params) (stats.PhaseResult, string, error) {
		if ph == workload.RandomRead {
			return stats.PhaseResult{Phase: ph}, "", workload.ErrTooManyFailures
		}
		return stats.PhaseResult{Phase: ph, Ops: 100, Throughput: 50, Unit: "MBps"}, "", nil
	}

	rep, err := Run(context.Background(), Params{Duration: time.Second})
	require.ErrorIs(t, err, ErrPhaseFailed)
	require.False(t, rep.Complete)
	require.NotEmpty(t, rep.Cause)

	// Phases that completed before the abort keep their results.
	require.NotNil(t, rep.Phases.SequentialRead)
	require.NotNil(t, rep.Phases.SequentialWrite)
	require.InDelta(t, 50.0, rep.Phases.SequentialRead.Throughput, 0.001)
	// The aborted phase and everything after it are absent.
	require.Nil(t, rep.Phases.RandomRead)
	require.Nil(t, rep.Phases.RandomWrite)
}

func TestStructuralFailureBeforeScratch(t *testing.T) {
	dir := t.TempDir()
	p := testParams(dir)
	p.Target.Path = filepath.Join(dir, "does-not-exist")

	rep, err := Run(context.Background(), p)
	require.Error(t, err)
	require.False(t, rep.Complete)
	require.NotEmpty(t, rep.Cause)
	require.Nil(t, rep.Phases.SequentialRead)

	// Nothing was ever created at the target.
	_, statErr := os.Stat(p.Target.Path)
	require.True(t, os.IsNotExist(statErr))
}
