package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spindlebench/spindle/pkg/bench"
	"github.com/spindlebench/spindle/pkg/config"
	"github.com/spindlebench/spindle/pkg/report"
	"github.com/spindlebench/spindle/pkg/target"
	"github.com/spindlebench/spindle/pkg/workload"
)

var version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "bench":
			runBenchCmd(os.Args[2:])
			return
		case "targets":
			runTargetsCmd(os.Args[2:])
			return
		case "version":
			fmt.Printf("spindle v%s\n", version)
			return
		case "help", "-h", "--help":
			usage()
			return
		}
	}

	// Default behavior: bench with flags.
	runBenchCmd(os.Args[1:])
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spindle [command] [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  bench      Run the disk benchmark (default)\n")
	fmt.Fprintf(os.Stderr, "  targets    List eligible benchmark targets\n")
	fmt.Fprintf(os.Stderr, "  version    Show version\n\n")
	fmt.Fprintf(os.Stderr, "Run 'spindle bench -h' for benchmark flags.\n")
}

func runBenchCmd(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	cfgFile := fs.String("config", "", "Path to YAML configuration file (disables other flags)")
	path := fs.String("path", "", "Target path (interactive selection if omitted)")
	reportFile := fs.String("report", "", "Write the JSON report to this file")
	duration := fs.Duration("duration", 30*time.Second, "Duration of each phase")
	engine := fs.String("engine", "sync", "I/O engine: 'sync' or 'uring'")
	noDirect := fs.Bool("no-direct", false, "Do not request uncached (direct) I/O")
	fs.Parse(args)

	cfg := config.Default()
	if *cfgFile != "" {
		var err error
		cfg, err = config.Load(*cfgFile)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg.Target = *path
		cfg.Report = *reportFile
		cfg.Settings.PhaseDuration = config.Duration(*duration)
		cfg.Settings.EngineType = *engine
		cfg.Settings.NoDirect = *noDirect
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := target.NewResolverWith(nil, cfg.Settings.MinFreeBytes)
	tgt, err := chooseTarget(ctx, resolver, cfg.Target)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmarking %s (%s free of %s), %s per phase\n",
		tgt.Path, formatBytes(tgt.FreeBytes), formatBytes(tgt.TotalBytes),
		cfg.Settings.PhaseDuration.Std())

	params := bench.Params{
		Target:        tgt,
		Duration:      cfg.Settings.PhaseDuration.Std(),
		Engine:        cfg.Settings.EngineType,
		Direct:        !cfg.Settings.NoDirect,
		SeqBlockSize:  cfg.Settings.SeqBlockSize,
		RandBlockSize: cfg.Settings.RandBlockSize,
		ScratchBytes:  cfg.Settings.ScratchBytes,
		FailureWindow: cfg.Settings.FailureWindow,
		Progress: func(p bench.Progress) {
			fmt.Printf("\r  %-18s %3.0f%%  %10.1f %s ", p.Phase, p.Fraction*100, p.Throughput, p.Unit)
		},
	}

	rep, runErr := bench.Run(ctx, params)
	fmt.Print("\r\033[K")
	printSummary(rep)

	if cfg.Report != "" {
		if err := rep.WriteFile(cfg.Report); err != nil {
			// The in-memory report was already presented above.
			fmt.Printf("Warning: %v\n", err)
		} else {
			fmt.Printf("Report written to %s\n", cfg.Report)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Println("Interrupted; report is partial.")
			os.Exit(130)
		}
		fmt.Printf("Benchmark failed: %v\n", runErr)
		os.Exit(1)
	}
}

func runTargetsCmd(args []string) {
	fs := flag.NewFlagSet("targets", flag.ExitOnError)
	fs.Parse(args)

	resolver := target.NewResolverWith(nil, 0)
	targets, err := resolver.List(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printTargetList(targets)
}

// chooseTarget resolves an explicit path, or lists eligible mounts and
// asks the user to pick one.
func chooseTarget(ctx context.Context, r *target.Resolver, path string) (target.Target, error) {
	if path != "" {
		return r.Resolve(ctx, path)
	}

	targets, err := r.List(ctx)
	if err != nil {
		return target.Target{}, err
	}
	if len(targets) == 1 {
		return targets[0], nil
	}

	printTargetList(targets)
	fmt.Print("Select target [1]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return target.Target{}, fmt.Errorf("read selection: %w", err)
	}
	line = strings.TrimSpace(line)
	idx := 1
	if line != "" {
		idx, err = strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(targets) {
			return target.Target{}, fmt.Errorf("invalid selection %q", line)
		}
	}
	return targets[idx-1], nil
}

func printTargetList(targets []target.Target) {
	for i, t := range targets {
		fmt.Printf("  %2d. %-24s %-10s %10s free of %s\n",
			i+1, t.Path, t.Fstype, formatBytes(t.FreeBytes), formatBytes(t.TotalBytes))
	}
}

func printSummary(rep *report.Report) {
	for _, ph := range workload.Phases {
		pr := rep.Phase(ph)
		if pr == nil {
			fmt.Printf("  %-18s (not run)\n", ph)
			continue
		}
		note := ""
		if pr.Partial {
			note = "  [partial]"
		}
		fmt.Printf("  %-18s %10.1f %-4s  lat p50 %.2fms p95 %.2fms p99 %.2fms  errors %d%s\n",
			ph, pr.Throughput, pr.Unit,
			pr.LatencyMS.P50, pr.LatencyMS.P95, pr.LatencyMS.P99, pr.Errors, note)
	}
	if !rep.Complete {
		fmt.Printf("  Incomplete run: %s\n", rep.Cause)
	}
	for _, w := range rep.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
