package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessTelemetry periodically logs a snapshot of the server process:
// heap allocation, goroutine count, and resident memory as reported by
// the OS. It runs under the supervisor like any other worker.
type ProcessTelemetry struct {
	log      *slog.Logger
	interval time.Duration
}

func NewProcessTelemetry(log *slog.Logger, interval time.Duration) *ProcessTelemetry {
	return &ProcessTelemetry{log: log, interval: interval}
}

func (w *ProcessTelemetry) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.snapshot(proc)
		}
	}
}

func (w *ProcessTelemetry) snapshot(proc *process.Process) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	fields := []any{
		"alloc_mb", stats.Alloc / (1024 * 1024),
		"num_gc", stats.NumGC,
		"goroutines", runtime.NumGoroutine(),
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		fields = append(fields, "rss_mb", mem.RSS/(1024*1024))
	}
	w.log.Info("process telemetry", fields...)
}
