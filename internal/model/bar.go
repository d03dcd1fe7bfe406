package model

import "time"

// Bar is one table row: an OHLCV bar keyed by its Eastern-localized timestamp.
// Missing vendor fields are carried as NaN.
type Bar struct {
	Time   time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
