// Package tickers loads and normalizes ticker lists.
package tickers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Sample is the list fetched when no tickers are given.
var Sample = []string{"DCIX", "AAPL", "TWTR", "FB", "SNAP", "A"}

// LoadFile reads tickers from a file.
// Supported formats:
//   - .txt  : one ticker per line (commas also split), '#' lines are comments
//   - .json : JSON array of strings
func LoadFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickers file %s: %w", path, err)
	}

	var list []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &list); err != nil {
			return nil, fmt.Errorf("parse JSON %s: %w", path, err)
		}
	case ".txt", "":
		list = parseText(string(content))
	default:
		return nil, fmt.Errorf("unsupported ticker file extension %q (use .txt or .json)", filepath.Ext(path))
	}

	out := Normalize(list)
	slog.Info("loaded tickers from file", "count", len(out), "path", path)
	return out, nil
}

// Normalize upper-cases and trims tickers, dropping blanks and duplicates.
// First occurrence order is kept.
func Normalize(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, t := range list {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func parseText(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Split(line, ",")...)
	}
	return out
}
