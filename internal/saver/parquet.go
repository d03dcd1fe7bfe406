package saver

import (
	"github.com/parquet-go/parquet-go"

	"bc-history/internal/model"
)

// ParquetSaver writes rows with the timestamp as Unix milliseconds (UTC instant)
// and the Eastern offset in seconds so the local wall clock can be restored.
type ParquetSaver struct{}

type parquetRow struct {
	Timestamp int64   `parquet:"timestamp"`
	UTCOffset int32   `parquet:"utc_offset"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []model.Bar, path string) error {
	rows := make([]parquetRow, len(bars))
	for i, b := range bars {
		_, off := b.Time.Zone()
		rows[i] = parquetRow{
			Timestamp: b.Time.UnixMilli(),
			UTCOffset: int32(off),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return parquet.WriteFile(path, rows)
}
