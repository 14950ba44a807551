package workload

import (
	"time"
)

// Phase identifies one of the four access patterns benchmarked.
type Phase int

const (
	SequentialRead Phase = iota
	SequentialWrite
	RandomRead
	RandomWrite
)

const (
	// Block sizes per access pattern: large blocks for streaming,
	// small blocks for random IOPS.
	SeqBlockSize  = 1 << 20 // 1 MiB
	RandBlockSize = 4096    // 4 KiB

	// DefaultScratchBytes is the scratch-file extent before free-space
	// capping is applied.
	DefaultScratchBytes = 256 << 20
)

func (p Phase) String() string {
	switch p {
	case SequentialRead:
		return "Sequential Read"
	case SequentialWrite:
		return "Sequential Write"
	case RandomRead:
		return "Random Read IOPS"
	case RandomWrite:
		return "Random Write IOPS"
	}
	return "Unknown"
}

// Key is the stable identifier used in serialized reports.
func (p Phase) Key() string {
	switch p {
	case SequentialRead:
		return "sequential_read"
	case SequentialWrite:
		return "sequential_write"
	case RandomRead:
		return "random_read_iops"
	case RandomWrite:
		return "random_write_iops"
	}
	return "unknown"
}

// Random reports whether the phase uses random offsets (and is therefore
// measured in ops/sec rather than bytes/sec).
func (p Phase) Random() bool {
	return p == RandomRead || p == RandomWrite
}

func (p Phase) Writes() bool {
	return p == SequentialWrite || p == RandomWrite
}

// BlockSize returns the fixed operation size for the phase.
func (p Phase) BlockSize() int {
	if p.Random() {
		return RandBlockSize
	}
	return SeqBlockSize
}

// Phases lists the four phases in canonical run order.
var Phases = []Phase{SequentialRead, SequentialWrite, RandomRead, RandomWrite}

// Sample is the record produced for a single completed I/O operation.
// Samples are consumed immediately by the reducer, never accumulated.
type Sample struct {
	Bytes   int
	Elapsed time.Duration
	Err     error
}

// Params defines a single workload phase against a scratch file.
type Params struct {
	Phase     Phase
	Dir       string        // directory hosting the scratch file
	Duration  time.Duration // timed window, measured from the first operation
	Engine    string        // "sync" or "uring"
	Direct    bool          // request uncached I/O where the platform allows it
	BlockSize int           // 0 means the phase default
	FileSize  int64         // scratch extent, 0 means the default policy
	FreeBytes uint64        // free space on the target, caps the scratch extent

	// FailureWindow is the size of the sliding window used for the
	// abort threshold. 0 means the default.
	FailureWindow int
}

func (p Params) blockSize() int {
	if p.BlockSize > 0 {
		return p.BlockSize
	}
	return p.Phase.BlockSize()
}

// scratchBytes picks the scratch extent: the configured size, capped to
// half the free space, with a floor of several blocks so sequential wrap
// is meaningful.
func (p Params) scratchBytes() int64 {
	size := p.FileSize
	if size <= 0 {
		size = DefaultScratchBytes
	}
	if p.FreeBytes > 0 {
		if max := int64(p.FreeBytes / 2); size > max {
			size = max
		}
	}
	if floor := int64(p.blockSize()) * 64; size < floor {
		size = floor
	}
	// Align to the block size so every offset addresses a full block.
	bs := int64(p.blockSize())
	return size - size%bs
}
