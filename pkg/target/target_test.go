package target

import (
	"context"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	parts []disk.PartitionStat
	usage map[string]*disk.UsageStat
}

func (f *fakeProber) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return f.parts, nil
}

func (f *fakeProber) Usage(ctx context.Context, path string) (*disk.UsageStat, error) {
	if u, ok := f.usage[path]; ok {
		return u, nil
	}
	return &disk.UsageStat{Path: path}, nil
}

func TestResolveExplicitPath(t *testing.T) {
	dir := t.TempDir()
	prober := &fakeProber{
		parts: []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		},
		usage: map[string]*disk.UsageStat{
			dir: {Path: dir, Fstype: "ext4", Total: 500 << 30, Free: 200 << 30},
		},
	}
	r := NewResolverWith(prober, 0)

	tgt, err := r.Resolve(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, dir, tgt.Path)
	require.Equal(t, "/dev/sda1", tgt.Device)
	require.Equal(t, uint64(200<<30), tgt.FreeBytes)
}

func TestResolveInsufficientSpace(t *testing.T) {
	dir := t.TempDir()
	prober := &fakeProber{
		usage: map[string]*disk.UsageStat{
			dir: {Path: dir, Total: 1 << 30, Free: 10 << 20},
		},
	}
	r := NewResolverWith(prober, 0)

	_, err := r.Resolve(context.Background(), dir)
	require.ErrorIs(t, err, ErrInsufficientSpace)
}

func TestResolveMissingPath(t *testing.T) {
	r := NewResolverWith(&fakeProber{}, 0)
	_, err := r.Resolve(context.Background(), "/definitely/not/a/mount")
	require.ErrorIs(t, err, ErrNoTarget)
}

func TestListFiltersIneligibleMounts(t *testing.T) {
	prober := &fakeProber{
		parts: []disk.PartitionStat{
			{Device: "/dev/nvme0n1p2", Mountpoint: "/", Fstype: "ext4"},
			{Device: "proc", Mountpoint: "/proc", Fstype: "proc"},
			{Device: "/dev/sdb1", Mountpoint: "/mnt/full", Fstype: "xfs"},
		},
		usage: map[string]*disk.UsageStat{
			"/":         {Path: "/", Total: 500 << 30, Free: 120 << 30},
			"/mnt/full": {Path: "/mnt/full", Total: 100 << 30, Free: 5 << 20},
		},
	}
	r := NewResolverWith(prober, 0)

	targets, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "/", targets[0].Path)
}

func TestListNoTargets(t *testing.T) {
	r := NewResolverWith(&fakeProber{}, 0)
	_, err := r.List(context.Background())
	require.ErrorIs(t, err, ErrNoTarget)
}
