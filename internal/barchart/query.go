package barchart

import (
	"net/url"
	"strconv"
)

const (
	defaultMaxRecords    = 15000
	defaultStartDate     = "20090203000000-06"
	defaultOrder         = "asc"
	defaultSessionFilter = "EFK"
	defaultVolume        = "sum"
	defaultNearby        = 1
)

// QuerySpec is the full parameter set of one getHistory request.
// Build it with NewQuerySpec; it is passed and stored by value.
type QuerySpec struct {
	APIKey          string
	Key             string
	Symbol          string
	MaxRecords      int
	StartDate       string
	Type            string // daily | minutes
	IntervalMinutes int    // set for intraday only
	Order           string
	SessionFilter   string
	Dividends       bool
	Splits          bool
	Volume          string
	Nearby          int
	Jerg            bool
}

// NewQuerySpec applies the fixed defaults and the interval-dependent overrides.
// `apikey` always carries the primary token; `key` carries the token chosen for the interval.
func NewQuerySpec(ticker string, iv Interval, creds Credentials) QuerySpec {
	q := QuerySpec{
		APIKey:        creds.Primary,
		Key:           creds.For(iv),
		Symbol:        ticker,
		MaxRecords:    defaultMaxRecords,
		StartDate:     defaultStartDate,
		Order:         defaultOrder,
		SessionFilter: defaultSessionFilter,
		Dividends:     true,
		Splits:        true,
		Volume:        defaultVolume,
		Nearby:        defaultNearby,
		Jerg:          true,
	}
	switch iv {
	case Intraday:
		q.Type = "minutes"
		q.IntervalMinutes = IntradayMinutes
	default:
		q.Type = "daily"
	}
	return q
}

// WithStartDate returns a copy with a different startDate (vendor format yyyymmddhhmmss-zz).
func (q QuerySpec) WithStartDate(start string) QuerySpec {
	q.StartDate = start
	return q
}

// Values renders the query parameters.
func (q QuerySpec) Values() url.Values {
	v := url.Values{}
	v.Set("apikey", q.APIKey)
	v.Set("key", q.Key)
	v.Set("symbol", q.Symbol)
	v.Set("maxRecords", strconv.Itoa(q.MaxRecords))
	v.Set("startDate", q.StartDate)
	v.Set("type", q.Type)
	if q.IntervalMinutes > 0 {
		v.Set("interval", strconv.Itoa(q.IntervalMinutes))
	}
	v.Set("order", q.Order)
	v.Set("sessionFilter", q.SessionFilter)
	v.Set("dividends", strconv.FormatBool(q.Dividends))
	v.Set("splits", strconv.FormatBool(q.Splits))
	v.Set("volume", q.Volume)
	v.Set("nearby", strconv.Itoa(q.Nearby))
	v.Set("jerg", strconv.FormatBool(q.Jerg))
	return v
}
