package barchart

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Interval selects the bar granularity of a history request.
type Interval int

const (
	Daily Interval = iota + 1
	Intraday
)

// IntradayMinutes is the bar width used for intraday requests.
const IntradayMinutes = 5

func (i Interval) String() string {
	switch i {
	case Daily:
		return "daily"
	case Intraday:
		return "5min"
	default:
		return fmt.Sprintf("Interval(%d)", int(i))
	}
}

// ParseInterval accepts daily | 5min | intraday | minutes (case-insensitive).
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d":
		return Daily, nil
	case "5min", "intraday", "minutes", "5m":
		return Intraday, nil
	default:
		return 0, fmt.Errorf("unknown interval %q (use: daily, 5min)", s)
	}
}

// Credentials holds the two vendor access tokens. Primary serves daily requests,
// Backup serves intraday requests so bulk 5-minute downloads do not eat into the
// primary key's quota.
type Credentials struct {
	Primary string
	Backup  string
}

// For returns the token used as the `key` parameter for the given interval.
func (c Credentials) For(iv Interval) string {
	if iv == Intraday {
		return c.Backup
	}
	return c.Primary
}

// LogValue keeps tokens out of log output.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("primary", redact(c.Primary)),
		slog.String("backup", redact(c.Backup)),
	)
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// RawBar is one element of the vendor `results` array, kept as-is until table construction.
type RawBar map[string]json.RawMessage

// historyResponse is the getHistory.json envelope. Only `results` is interpreted.
type historyResponse struct {
	Status *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status,omitempty"`
	Results []RawBar `json:"results"`
}
