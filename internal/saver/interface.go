package saver

import (
	"math"
	"strings"

	"bc-history/internal/model"
)

// PacketSaver writes one ticker's bar table to a file.
// The bulk downloader depends only on this interface; main picks the format.
type PacketSaver interface {
	Save(bars []model.Bar, path string) error
	Extension() string
}

// Formats lists the accepted format names.
var Formats = []string{"csv", "json", "parquet", "sqlite"}

// NewPacketSaver creates the implementation for format (csv, json, parquet, sqlite).
// Returns nil if format is not supported.
func NewPacketSaver(format string) PacketSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	case "sqlite":
		return SQLiteSaver{}
	default:
		return nil
	}
}

// nullable maps NaN to nil for formats without a NaN representation.
func nullable(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}
