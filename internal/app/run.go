package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"bc-history/internal/barchart"
	"bc-history/internal/bulk"
	"bc-history/internal/tickers"
)

// ResolveTickers picks the ticker list: explicit list, then file, then the sample list.
func ResolveTickers(cfg *Config) ([]string, error) {
	if len(cfg.Tickers) > 0 {
		return cfg.Tickers, nil
	}
	if cfg.TickersFile != "" {
		return tickers.LoadFile(cfg.TickersFile)
	}
	return tickers.Sample, nil
}

// RunOnce performs one bulk download and logs a per-ticker summary.
// The error is non-nil only when the run was aborted.
func RunOnce(ctx context.Context, cfg *Config, d *bulk.Downloader, list []string) (bulk.ResultMap, error) {
	iv, err := barchart.ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}
	mode, err := bulk.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	results, rep, err := d.Run(ctx, list, iv, mode)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", rep.RunID, err)
	}

	keys := results.Tickers()
	sort.Strings(keys)
	for _, t := range keys {
		tbl := results[t]
		idx := tbl.Index()
		if len(idx) == 0 {
			continue
		}
		slog.Info("table", "ticker", t, "rows", tbl.Len(), "first", idx[0], "last", idx[len(idx)-1])
	}
	if missing := rep.FailedTickers(); len(missing) > 0 {
		slog.Warn("tickers missing from result", "count", len(missing), "tickers", missing)
	}
	return results, nil
}
