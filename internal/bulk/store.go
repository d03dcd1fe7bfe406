package bulk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bc-history/internal/barchart"
	"bc-history/internal/saver"
	"bc-history/internal/table"
)

// sink persists built tables and progress under SaveDir. The zero sink does nothing.
type sink struct {
	dir     string
	saver   saver.PacketSaver
	log     *slog.Logger
	updates chan ProgressUpdate
	done    chan struct{}
}

func (d *Downloader) startSink(log *slog.Logger) *sink {
	if d.opts.SaveDir == "" {
		return &sink{}
	}
	if err := os.MkdirAll(d.opts.SaveDir, 0755); err != nil {
		log.Warn("cannot create save dir, export disabled", "dir", d.opts.SaveDir, "error", err)
		return &sink{}
	}
	s := &sink{
		dir:     d.opts.SaveDir,
		saver:   d.opts.Saver,
		log:     log,
		updates: make(chan ProgressUpdate, 64),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		RunProgressWriter(filepath.Join(s.dir, progressFileName), s.updates)
	}()
	return s
}

func (s *sink) put(ticker string, iv barchart.Interval, tbl *table.BarTable) {
	if s.dir == "" {
		return
	}
	if s.saver != nil && tbl.Len() > 0 {
		s.saveTable(ticker, iv, tbl)
	}
	if last, ok := tbl.Last(); ok {
		s.updates <- ProgressUpdate{Ticker: ticker, Interval: iv.String(), LastBar: last.Time, Bars: tbl.Len()}
	}
}

// saveTable writes {dir}/{ticker}/{ticker}_{interval}.{ext}.
func (s *sink) saveTable(ticker string, iv barchart.Interval, tbl *table.BarTable) {
	tickerDir := filepath.Join(s.dir, ticker)
	if err := os.MkdirAll(tickerDir, 0755); err != nil {
		s.log.Warn("save: cannot create folder", "ticker", ticker, "dir", tickerDir, "error", err)
		return
	}
	path := TablePath(s.dir, ticker, iv, s.saver.Extension())
	if err := s.saver.Save(tbl.Rows(), path); err != nil {
		s.log.Warn("save: write failed", "ticker", ticker, "path", path, "error", err)
		return
	}
	s.log.Info("saved table", "ticker", ticker, "path", path, "bars", tbl.Len())
}

func (s *sink) close() {
	if s.updates == nil {
		return
	}
	close(s.updates)
	<-s.done
}

// TablePath is where a ticker's exported table lives.
func TablePath(dir, ticker string, iv barchart.Interval, ext string) string {
	return filepath.Join(dir, ticker, fmt.Sprintf("%s_%s.%s", ticker, iv, ext))
}
