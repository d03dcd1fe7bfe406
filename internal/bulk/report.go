package bulk

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"bc-history/internal/barchart"
)

const (
	successReportName = ".lastrun.success.json"
	failedReportName  = ".lastrun.failed.json"
)

// FailedEntry is one ticker left out of a run.
type FailedEntry struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// SuccessEntry is one ticker present in the result map.
type SuccessEntry struct {
	Ticker string `json:"ticker"`
	Bars   int    `json:"bars"`
}

// Report summarizes a run.
type Report struct {
	mu sync.Mutex

	RunID       string         `json:"run_id"`
	Interval    string         `json:"interval"`
	Mode        Mode           `json:"mode"`
	Started     time.Time      `json:"started"`
	Finished    time.Time      `json:"finished"`
	Aborted     bool           `json:"aborted"`
	AbortReason string         `json:"abort_reason,omitempty"`
	Succeeded   []SuccessEntry `json:"succeeded"`
	Failed      []FailedEntry  `json:"failed"`
}

func newReport(iv barchart.Interval, mode Mode) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Interval: iv.String(),
		Mode:     mode,
		Started:  time.Now(),
	}
}

func (r *Report) succeed(ticker string, bars int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded = append(r.Succeeded, SuccessEntry{Ticker: ticker, Bars: bars})
}

func (r *Report) fail(ticker, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, FailedEntry{Ticker: ticker, Reason: reason})
}

// FailedTickers returns the tickers recorded as failed.
func (r *Report) FailedTickers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.Ticker
	}
	return out
}

// writeRunReport writes the success and failed lists next to the exported data.
func writeRunReport(saveDir string, r *Report) error {
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	success := struct {
		RunID    string         `json:"run_id"`
		Interval string         `json:"interval"`
		Mode     Mode           `json:"mode"`
		Started  time.Time      `json:"started"`
		Finished time.Time      `json:"finished"`
		Tickers  []SuccessEntry `json:"tickers"`
	}{r.RunID, r.Interval, r.Mode, r.Started, r.Finished, r.Succeeded}
	if err := writeJSON(filepath.Join(saveDir, successReportName), success); err != nil {
		return err
	}

	failed := struct {
		RunID       string        `json:"run_id"`
		Aborted     bool          `json:"aborted"`
		AbortReason string        `json:"abort_reason,omitempty"`
		Tickers     []FailedEntry `json:"tickers"`
	}{r.RunID, r.Aborted, r.AbortReason, r.Failed}
	if err := writeJSON(filepath.Join(saveDir, failedReportName), failed); err != nil {
		return err
	}
	slog.Debug("run report written", "dir", saveDir, "success", len(r.Succeeded), "failed", len(r.Failed))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
