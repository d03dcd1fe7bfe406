// Package table turns vendor bar records into a timestamp-indexed table
// localized to US Eastern time.
package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // embedded zone database, conversions must not depend on the host

	"bc-history/internal/barchart"
	"bc-history/internal/model"
)

// Columns is the fixed column set of every BarTable, in order.
var Columns = []string{"open", "high", "low", "close", "volume"}

// ErrMissingTimestamp is returned when a record has no timestamp field.
var ErrMissingTimestamp = errors.New("missing timestamp field")

// Eastern is the zone every row key is converted to.
var Eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("table: load location %s: %v", name, err))
	}
	return loc
}

// untaggedLayouts are parsed as UTC.
var untaggedLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BarTable is an ordered set of bars. Row order is the vendor's order; the
// request asks for ascending timestamps and rows are never re-sorted.
type BarTable struct {
	bars []model.Bar
}

// New wraps bars without copying. Row keys are expected to be Eastern already.
func New(bars []model.Bar) *BarTable {
	return &BarTable{bars: bars}
}

// Len returns the number of rows.
func (t *BarTable) Len() int { return len(t.bars) }

// Rows returns the rows. Callers must not modify the slice.
func (t *BarTable) Rows() []model.Bar { return t.bars }

// Index returns the row keys.
func (t *BarTable) Index() []time.Time {
	idx := make([]time.Time, len(t.bars))
	for i, b := range t.bars {
		idx[i] = b.Time
	}
	return idx
}

// Column returns one of Columns as a slice aligned with Index.
func (t *BarTable) Column(name string) ([]float64, error) {
	var pick func(model.Bar) float64
	switch name {
	case "open":
		pick = func(b model.Bar) float64 { return b.Open }
	case "high":
		pick = func(b model.Bar) float64 { return b.High }
	case "low":
		pick = func(b model.Bar) float64 { return b.Low }
	case "close":
		pick = func(b model.Bar) float64 { return b.Close }
	case "volume":
		pick = func(b model.Bar) float64 { return b.Volume }
	default:
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(t.bars))
	for i, b := range t.bars {
		out[i] = pick(b)
	}
	return out, nil
}

// Last returns the final row, false when the table is empty.
func (t *BarTable) Last() (model.Bar, bool) {
	if len(t.bars) == 0 {
		return model.Bar{}, false
	}
	return t.bars[len(t.bars)-1], true
}

// Build projects rows onto timestamp + Columns. The timestamp becomes the row key,
// converted from UTC (or its own offset when tagged) to Eastern time.
// Fields other than the six are dropped; absent numeric fields become NaN.
func Build(rows []barchart.RawBar) (*BarTable, error) {
	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		raw, ok := row["timestamp"]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingTimestamp)
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		b := model.Bar{Time: ts.In(Eastern)}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open},
			{"high", &b.High},
			{"low", &b.Low},
			{"close", &b.Close},
			{"volume", &b.Volume},
		}
		for _, f := range fields {
			v, err := parseNumber(row[f.name])
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i, f.name, err)
			}
			*f.dst = v
		}
		bars = append(bars, b)
	}
	return New(bars), nil
}

// ParseTimestamp reads a vendor timestamp. Strings with a zone offset keep it;
// strings without one are UTC. Numbers are Unix seconds, or milliseconds when
// larger than 1e12.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %w", err)
		}
		return parseTimestampString(strings.TrimSpace(s))
	}

	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s: not a string or number", string(raw))
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

func parseTimestampString(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range untaggedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognized format", s)
}

func parseNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || isNull(raw) {
		return math.NaN(), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
