package bulk

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"bc-history/internal/barchart"
)

// Job is one ticker request handed to a worker.
type Job struct {
	Ticker   string
	Interval barchart.Interval
}

// JobResult is sent by workers for fan-in.
type JobResult struct {
	Ticker string
	Rows   []barchart.RawBar
	Err    error
}

// tally counts finished jobs for the heartbeat.
type tally struct {
	mu              sync.Mutex
	success, failed int
	bars            int
}

func (t *tally) add(r JobResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Err != nil {
		t.failed++
		return
	}
	t.success++
	t.bars += len(r.Rows)
}

func (t *tally) snapshot() (success, failed, bars int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success, t.failed, t.bars
}

// runJobResultCollector drains results until the channel is closed.
func runJobResultCollector(results <-chan JobResult, t *tally) []JobResult {
	var collected []JobResult
	for r := range results {
		t.add(r)
		collected = append(collected, r)
	}
	return collected
}

func runLogWriter(w io.Writer, lines <-chan string) {
	bw := bufio.NewWriter(w)
	for s := range lines {
		bw.WriteString(s)
		bw.WriteByte('\n')
		if len(lines) == 0 {
			bw.Flush()
		}
	}
	bw.Flush()
}

func runHeartbeat(ctx context.Context, interval time.Duration, totalJobs int, t *tally, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, f, bars := t.snapshot()
			logger.Info("heartbeat", "done", s+f, "total", totalJobs, "success", s, "failed", f, "bars", bars)
		}
	}
}
