package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/observability"
)

// HealthMonitoringWorker samples the server's own process periodically
// and logs one summary line: CPU, memory, and the live counter
// snapshot. The line is the operational heartbeat of a long-running
// server; silence in the log means the worker (or the server) is gone.
type HealthMonitoringWorker struct {
	log      *slog.Logger
	interval time.Duration
	metrics  *observability.Metrics
}

func NewHealthMonitoringWorker(log *slog.Logger, interval time.Duration, metrics *observability.Metrics) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, interval: interval, metrics: metrics}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("attaching to own process: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.sample(proc)
		}
	}
}

func (w *HealthMonitoringWorker) sample(proc *process.Process) {
	cpu, err := proc.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	ram, err := proc.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}

	snap := w.metrics.Stats()
	w.log.Info("Health",
		"cpu_percent", fmt.Sprintf("%.1f", cpu),
		"ram_percent", fmt.Sprintf("%.1f", ram),
		"goroutines", snap.NumGoroutine,
		"alloc_mb", snap.AllocMemMb,
		"sessions", snap.Sessions,
		"groups", snap.Groups,
		"messages", snap.MessagesPublic+snap.MessagesPrivate+snap.MessagesGroup,
	)
}
