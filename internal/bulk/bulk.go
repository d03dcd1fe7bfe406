// Package bulk downloads bar tables for many tickers, one at a time or through
// a fixed-size worker pool.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"bc-history/internal/barchart"
	"bc-history/internal/saver"
	"bc-history/internal/slogx"
	"bc-history/internal/table"
)

// DefaultWorkers keeps concurrent requests under the vendor's connection limit.
const DefaultWorkers = 3

const defaultHeartbeat = 30 * time.Second

// Fetcher fetches the raw history of one ticker.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string, iv barchart.Interval) ([]barchart.RawBar, error)
}

// ResultMap holds one table per successfully fetched ticker. A ticker that
// failed has no entry.
type ResultMap map[string]*table.BarTable

// Tickers returns the keys in no particular order.
func (m ResultMap) Tickers() []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}

// Mode selects how tickers are scheduled.
type Mode string

const (
	Concurrent Mode = "concurrent"
	Sequential Mode = "sequential"
)

// ParseMode accepts concurrent | sequential.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Concurrent, "":
		return Concurrent, nil
	case Sequential:
		return Sequential, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use: concurrent, sequential)", s)
	}
}

// Options configures a Downloader. Zero values pick the defaults.
type Options struct {
	Workers   int               // pool width, default 3
	SaveDir   string            // run report, progress and exported tables; empty disables all three
	Saver     saver.PacketSaver // table export format; nil disables export
	Heartbeat time.Duration     // concurrent progress log period, default 30s
	Logger    *slog.Logger      // orchestrator logger, default slog.Default()
	LogOutput io.Writer         // sink for worker logs in concurrent mode, default stderr
	LogLevel  slog.Level        // level of worker logs
}

// Downloader drives Fetcher and table.Build over a ticker set.
type Downloader struct {
	fetcher Fetcher
	opts    Options
}

// NewDownloader creates a Downloader.
func NewDownloader(f Fetcher, opts Options) *Downloader {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	return &Downloader{fetcher: f, opts: opts}
}

// Workers returns the pool width.
func (d *Downloader) Workers() int { return d.opts.Workers }

// FetchAll downloads every ticker through the worker pool.
func (d *Downloader) FetchAll(ctx context.Context, tickers []string, iv barchart.Interval) (ResultMap, error) {
	m, _, err := d.Run(ctx, tickers, iv, Concurrent)
	return m, err
}

// FetchAllSequential downloads the tickers one after another.
func (d *Downloader) FetchAllSequential(ctx context.Context, tickers []string, iv barchart.Interval) (ResultMap, error) {
	m, _, err := d.Run(ctx, tickers, iv, Sequential)
	return m, err
}

// Run downloads tickers in the given mode and returns the tables with a run report.
//
// Failures of single tickers are logged and leave the ticker out of the map.
// A fatal failure (non-JSON response) stops the run: no further requests are
// started and the returned map is nil.
func (d *Downloader) Run(ctx context.Context, tickers []string, iv barchart.Interval, mode Mode) (ResultMap, *Report, error) {
	rep := newReport(iv, mode)
	log := d.opts.Logger.With("run_id", rep.RunID, "interval", iv.String(), "mode", string(mode))
	log.Info("stocks will be downloaded", "count", len(tickers), "workers", d.workersFor(mode))

	var (
		results ResultMap
		err     error
	)
	switch mode {
	case Sequential:
		results, err = d.runSequential(ctx, log, tickers, iv, rep)
	case Concurrent:
		results, err = d.runConcurrent(ctx, log, tickers, iv, rep)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	rep.Finished = time.Now()
	if err != nil {
		rep.Aborted = true
		rep.AbortReason = err.Error()
	}

	if d.opts.SaveDir != "" {
		if werr := writeRunReport(d.opts.SaveDir, rep); werr != nil {
			log.Warn("could not write run report", "error", werr)
		}
	}
	if err != nil {
		log.Error("run aborted", "error", err, "succeeded", len(rep.Succeeded), "failed", len(rep.Failed))
		return nil, rep, err
	}
	log.Info("run done", "succeeded", len(rep.Succeeded), "failed", len(rep.Failed), "elapsed", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	return results, rep, nil
}

func (d *Downloader) workersFor(mode Mode) int {
	if mode == Sequential {
		return 1
	}
	return d.opts.Workers
}

func (d *Downloader) runSequential(ctx context.Context, log *slog.Logger, tickers []string, iv barchart.Interval, rep *Report) (ResultMap, error) {
	sink := d.startSink(log)
	defer sink.close()

	out := make(ResultMap, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if reason := admit(t, seen); reason != "" {
			log.Warn("ticker rejected", "ticker", t, "reason", reason)
			rep.fail(t, reason)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}

		rows, err := d.fetcher.Fetch(ctx, t, iv)
		if err != nil {
			if barchart.IsFatal(err) {
				rep.fail(t, err.Error())
				return nil, fmt.Errorf("abort run: %w", err)
			}
			log.Error("fetch failed", "ticker", t, "kind", barchart.KindOf(err).String(), "error", err)
			rep.fail(t, err.Error())
			continue
		}
		if tbl, ok := d.build(log, t, iv, rows, rep, sink); ok {
			out[t] = tbl
		}
	}
	return out, nil
}

func (d *Downloader) runConcurrent(parent context.Context, log *slog.Logger, tickers []string, iv barchart.Interval, rep *Report) (ResultMap, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	logs := make(chan string, 2048)
	workerLog := slogx.NewChanLogger(logs, d.opts.LogLevel).With("run_id", rep.RunID, "interval", iv.String())
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(d.opts.LogOutput, logs)
	}()
	defer func() {
		close(logs)
		logWg.Wait()
	}()

	pending := make(chan Job, len(tickers))
	seen := make(map[string]bool, len(tickers))
	submitted := 0
	for _, t := range tickers {
		if err := submit(pending, Job{Ticker: t, Interval: iv}, seen); err != nil {
			log.Warn("submit failed", "ticker", t, "error", err)
			rep.fail(t, err.Error())
			continue
		}
		submitted++
	}
	close(pending)

	results := make(chan JobResult, submitted)
	var (
		fatalOnce sync.Once
		fatalErr  error
	)
	var wg sync.WaitGroup
	wg.Add(d.opts.Workers)
	for i := 0; i < d.opts.Workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-pending:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}
					workerLog.Debug("job take", "ticker", job.Ticker, "worker", worker)
					rows, err := d.fetcher.Fetch(ctx, job.Ticker, job.Interval)
					if err != nil && barchart.IsFatal(err) {
						fatalOnce.Do(func() {
							fatalErr = err
							cancel()
						})
					}
					if err != nil {
						workerLog.Error("fetch failed", "ticker", job.Ticker, "kind", barchart.KindOf(err).String(), "error", err)
					} else {
						workerLog.Info("fetch ok", "ticker", job.Ticker, "bars", len(rows))
					}
					results <- JobResult{Ticker: job.Ticker, Rows: rows, Err: err}
				}
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var t tally
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		runHeartbeat(hbCtx, d.opts.Heartbeat, submitted, &t, workerLog)
	}()
	collected := runJobResultCollector(results, &t)
	hbCancel()
	hbWg.Wait()

	if fatalErr != nil {
		for _, r := range collected {
			if r.Err != nil && barchart.IsFatal(r.Err) {
				rep.fail(r.Ticker, r.Err.Error())
			}
		}
		return nil, fmt.Errorf("abort run: %w", fatalErr)
	}
	if err := parent.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	sink := d.startSink(log)
	defer sink.close()
	out := make(ResultMap, len(collected))
	for _, r := range collected {
		if r.Err != nil {
			rep.fail(r.Ticker, r.Err.Error())
			continue
		}
		if tbl, ok := d.build(log, r.Ticker, iv, r.Rows, rep, sink); ok {
			out[r.Ticker] = tbl
		}
	}
	return out, nil
}

// build runs table.Build for one ticker and hands the table to the sink.
func (d *Downloader) build(log *slog.Logger, ticker string, iv barchart.Interval, rows []barchart.RawBar, rep *Report, sink *sink) (*table.BarTable, bool) {
	tbl, err := table.Build(rows)
	if err != nil {
		reason := fmt.Sprintf("build table: %v", err)
		if errors.Is(err, table.ErrMissingTimestamp) {
			reason = fmt.Sprintf("MissingTimestampField: %v", err)
		}
		log.Error("table build failed", "ticker", ticker, "error", err)
		rep.fail(ticker, reason)
		return nil, false
	}
	rep.succeed(ticker, tbl.Len())
	sink.put(ticker, iv, tbl)
	return tbl, true
}

// admit returns a rejection reason, or "" when the ticker may be requested.
func admit(ticker string, seen map[string]bool) string {
	if strings.TrimSpace(ticker) == "" {
		return "blank ticker"
	}
	if seen[ticker] {
		return "duplicate ticker"
	}
	seen[ticker] = true
	return ""
}

// submit enqueues one job without blocking.
func submit(pending chan<- Job, job Job, seen map[string]bool) error {
	if reason := admit(job.Ticker, seen); reason != "" {
		return errors.New(reason)
	}
	select {
	case pending <- job:
		return nil
	default:
		return errors.New("job queue full")
	}
}
