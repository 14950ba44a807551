// Package target enumerates mounted storage and resolves benchmark
// targets. Platform probing goes through gopsutil; the benchmarking logic
// itself never touches OS-specific mount tables.
package target

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/disk"
)

var (
	// ErrNoTarget means no eligible storage target exists, or the
	// requested path does not resolve to a mounted filesystem.
	ErrNoTarget = errors.New("no eligible benchmark target")
	// ErrInsufficientSpace means the target cannot hold the scratch
	// file a meaningful sequential test needs.
	ErrInsufficientSpace = errors.New("insufficient free space on target")
)

// DefaultMinFree is the free-space floor below which a target is not
// worth benchmarking: the sequential scratch file would not fit.
const DefaultMinFree = 100 << 20

// Target identifies a storage location. Immutable once resolved.
type Target struct {
	Path       string `json:"path"`
	Device     string `json:"device,omitempty"`
	Fstype     string `json:"fstype,omitempty"`
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// Prober abstracts mount enumeration and capacity queries so tests can
// substitute fixed data for the live system.
type Prober interface {
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
	Usage(ctx context.Context, path string) (*disk.UsageStat, error)
}

type sysProber struct{}

func (sysProber) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false)
}

func (sysProber) Usage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

// pseudoFstypes are filesystems that are never sensible benchmark targets.
var pseudoFstypes = map[string]bool{
	"autofs": true, "binfmt_misc": true, "bpf": true, "cgroup": true,
	"cgroup2": true, "configfs": true, "debugfs": true, "devfs": true,
	"devpts": true, "devtmpfs": true, "fusectl": true, "hugetlbfs": true,
	"mqueue": true, "nsfs": true, "overlay": true, "proc": true,
	"procfs": true, "pstore": true, "ramfs": true, "securityfs": true,
	"squashfs": true, "sysfs": true, "tracefs": true,
}

// Resolver turns paths or the system mount table into benchmark targets.
type Resolver struct {
	prober  Prober
	minFree uint64
}

func NewResolver() *Resolver {
	return &Resolver{prober: sysProber{}, minFree: DefaultMinFree}
}

// NewResolverWith builds a resolver on an explicit prober and free-space
// floor. A nil prober means the live system; minFree of 0 keeps the
// default.
func NewResolverWith(p Prober, minFree uint64) *Resolver {
	if p == nil {
		p = sysProber{}
	}
	if minFree == 0 {
		minFree = DefaultMinFree
	}
	return &Resolver{prober: p, minFree: minFree}
}

// Resolve builds the target for an explicit path. The path must exist and
// sit on a filesystem with at least the minimum free space.
func (r *Resolver) Resolve(ctx context.Context, path string) (Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrNoTarget, path, err)
	}
	if !info.IsDir() {
		return Target{}, fmt.Errorf("%w: %s is not a directory", ErrNoTarget, path)
	}

	usage, err := r.prober.Usage(ctx, path)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrNoTarget, path, err)
	}

	tgt := Target{
		Path:       path,
		Fstype:     usage.Fstype,
		TotalBytes: usage.Total,
		FreeBytes:  usage.Free,
	}
	if part, ok := r.mountFor(ctx, path); ok {
		tgt.Device = part.Device
		if tgt.Fstype == "" {
			tgt.Fstype = part.Fstype
		}
	}

	if tgt.FreeBytes < r.minFree {
		return Target{}, fmt.Errorf("%w: %s has %d bytes free, need %d",
			ErrInsufficientSpace, path, tgt.FreeBytes, r.minFree)
	}
	return tgt, nil
}

// List enumerates mounted filesystems eligible for benchmarking, for
// interactive selection by the presentation layer.
func (r *Resolver) List(ctx context.Context) ([]Target, error) {
	parts, err := r.prober.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate mounts: %w", err)
	}

	var targets []Target
	for _, part := range parts {
		if pseudoFstypes[part.Fstype] {
			continue
		}
		usage, err := r.prober.Usage(ctx, part.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		if usage.Free < r.minFree {
			continue
		}
		targets = append(targets, Target{
			Path:       part.Mountpoint,
			Device:     part.Device,
			Fstype:     part.Fstype,
			TotalBytes: usage.Total,
			FreeBytes:  usage.Free,
		})
	}
	if len(targets) == 0 {
		return nil, ErrNoTarget
	}
	return targets, nil
}

// mountFor finds the mount containing path, preferring the longest
// matching mountpoint.
func (r *Resolver) mountFor(ctx context.Context, path string) (disk.PartitionStat, bool) {
	parts, err := r.prober.Partitions(ctx)
	if err != nil {
		return disk.PartitionStat{}, false
	}
	best := -1
	for i, part := range parts {
		mp := part.Mountpoint
		if len(path) < len(mp) || path[:len(mp)] != mp {
			continue
		}
		if best < 0 || len(mp) > len(parts[best].Mountpoint) {
			best = i
		}
	}
	if best < 0 {
		return disk.PartitionStat{}, false
	}
	return parts[best], true
}
