package saver

import (
	"encoding/json"
	"os"
	"time"

	"bc-history/internal/model"
)

// JSONSaver writes an indented array of rows. NaN becomes null.
type JSONSaver struct{}

type jsonRow struct {
	Timestamp time.Time `json:"timestamp"`
	Open      *float64  `json:"open"`
	High      *float64  `json:"high"`
	Low       *float64  `json:"low"`
	Close     *float64  `json:"close"`
	Volume    *float64  `json:"volume"`
}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []model.Bar, path string) error {
	rows := make([]jsonRow, len(bars))
	for i, b := range bars {
		rows[i] = jsonRow{
			Timestamp: b.Time,
			Open:      nullable(b.Open),
			High:      nullable(b.High),
			Low:       nullable(b.Low),
			Close:     nullable(b.Close),
			Volume:    nullable(b.Volume),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return f.Close()
}
