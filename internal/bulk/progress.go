package bulk

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

const progressFileName = ".lastbar.json"

// ProgressUpdate is sent after a ticker's table was built.
type ProgressUpdate struct {
	Ticker   string
	Interval string
	LastBar  time.Time
	Bars     int
}

// ProgressEntry is the persisted state of one ticker/interval.
type ProgressEntry struct {
	LastBar   time.Time `json:"last_bar"`
	Bars      int       `json:"bars"`
	UpdatedAt time.Time `json:"updated_at"`
}

func progressKey(ticker, interval string) string {
	return ticker + "/" + interval
}

// LoadProgress reads the progress file; a missing or broken file yields an empty map.
func LoadProgress(path string) map[string]ProgressEntry {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string]ProgressEntry)
	}
	var m map[string]ProgressEntry
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]ProgressEntry)
	}
	return m
}

// RunProgressWriter receives updates and persists them to path until updates is closed.
func RunProgressWriter(path string, updates <-chan ProgressUpdate) {
	m := LoadProgress(path)
	for u := range updates {
		m[progressKey(u.Ticker, u.Interval)] = ProgressEntry{
			LastBar:   u.LastBar,
			Bars:      u.Bars,
			UpdatedAt: time.Now(),
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			slog.Warn("progress marshal error", "error", err)
			continue
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			slog.Warn("progress write error", "error", err)
		}
	}
}
