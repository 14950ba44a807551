// Package report serializes benchmark results into the machine-readable
// document consumed by tooling and the presentation layer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spindlebench/spindle/pkg/stats"
	"github.com/spindlebench/spindle/pkg/target"
	"github.com/spindlebench/spindle/pkg/workload"
)

// PhaseReport is the serialized form of one phase summary.
type PhaseReport struct {
	Throughput float64       `json:"throughput"`
	Unit       string        `json:"unit"`
	LatencyMS  stats.Latency `json:"latency_ms"`
	Errors     int64         `json:"errors"`
	Direct     bool          `json:"direct"`
	Partial    bool          `json:"partial,omitempty"`
}

// Phases holds the four phase slots in run order. Struct fields rather
// than a map so serialization preserves phase order; nil slots are phases
// that never ran.
type Phases struct {
	SequentialRead  *PhaseReport `json:"sequential_read,omitempty"`
	SequentialWrite *PhaseReport `json:"sequential_write,omitempty"`
	RandomRead      *PhaseReport `json:"random_read_iops,omitempty"`
	RandomWrite     *PhaseReport `json:"random_write_iops,omitempty"`
}

// Report is the aggregate of a benchmark run. Immutable once assembled.
type Report struct {
	Target          target.Target `json:"target"`
	Timestamp       time.Time     `json:"timestamp"`
	DurationSeconds int           `json:"duration_seconds"`
	Phases          Phases        `json:"phases"`
	Complete        bool          `json:"complete"`
	Cause           string        `json:"cause,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// SetPhase stores a finalized phase summary in its slot.
func (r *Report) SetPhase(res stats.PhaseResult) {
	pr := &PhaseReport{
		Throughput: res.Throughput,
		Unit:       res.Unit,
		LatencyMS:  res.Latency,
		Errors:     res.Errors,
		Direct:     res.Direct,
		Partial:    res.Partial,
	}
	switch res.Phase {
	case workload.SequentialRead:
		r.Phases.SequentialRead = pr
	case workload.SequentialWrite:
		r.Phases.SequentialWrite = pr
	case workload.RandomRead:
		r.Phases.RandomRead = pr
	case workload.RandomWrite:
		r.Phases.RandomWrite = pr
	}
}

// Phase returns the stored summary for a phase, or nil if it never ran.
func (r *Report) Phase(p workload.Phase) *PhaseReport {
	switch p {
	case workload.SequentialRead:
		return r.Phases.SequentialRead
	case workload.SequentialWrite:
		return r.Phases.SequentialWrite
	case workload.RandomRead:
		return r.Phases.RandomRead
	case workload.RandomWrite:
		return r.Phases.RandomWrite
	}
	return nil
}

// Write serializes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteFile persists the report to disk. A failure here leaves the
// in-memory report valid; callers may still hand it to the presentation
// layer.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
