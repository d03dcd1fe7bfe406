package saver

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bc-history/internal/model"
)

func sampleBars(t *testing.T) []model.Bar {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return []model.Bar{
		{Time: time.Date(2018, 1, 2, 9, 30, 0, 0, ny), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Time: time.Date(2018, 1, 2, 9, 35, 0, 0, ny), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: math.NaN()},
	}
}

func TestNewPacketSaver(t *testing.T) {
	for _, f := range Formats {
		s := NewPacketSaver(f)
		require.NotNil(t, s, f)
		assert.Equal(t, f, s.Extension())
	}
	assert.NotNil(t, NewPacketSaver(" CSV "))
	assert.Nil(t, NewPacketSaver("xlsx"))
}

func TestCSVSaver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AAPL_5min.csv")
	require.NoError(t, CSVSaver{}.Save(sampleBars(t), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"timestamp", "open", "high", "low", "close", "volume"}, records[0])
	assert.Equal(t, "2018-01-02T09:30:00-05:00", records[1][0])
	assert.Equal(t, "100", records[1][5])
	assert.Equal(t, "", records[2][5])
}

func TestJSONSaver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AAPL_5min.json")
	require.NoError(t, JSONSaver{}.Save(sampleBars(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))

	require.Len(t, rows, 2)
	assert.Equal(t, "2018-01-02T09:30:00-05:00", rows[0]["timestamp"])
	assert.Equal(t, 1.5, rows[0]["close"])
	assert.Nil(t, rows[1]["volume"])
}

func TestParquetSaver(t *testing.T) {
	bars := sampleBars(t)
	path := filepath.Join(t.TempDir(), "AAPL_5min.parquet")
	require.NoError(t, ParquetSaver{}.Save(bars, path))

	rows, err := parquet.ReadFile[parquetRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, bars[0].Time.UnixMilli(), rows[0].Timestamp)
	assert.Equal(t, int32(-5*3600), rows[0].UTCOffset)
	assert.Equal(t, 2.0, rows[1].Close)
}

func TestSQLiteSaver(t *testing.T) {
	bars := sampleBars(t)
	path := filepath.Join(t.TempDir(), "AAPL_5min.sqlite")
	require.NoError(t, SQLiteSaver{}.Save(bars, path))
	// saving again replaces rows instead of duplicating them
	require.NoError(t, SQLiteSaver{}.Save(bars, path))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM bars").Scan(&n))
	assert.Equal(t, 2, n)

	var vol sql.NullFloat64
	require.NoError(t, db.QueryRow("SELECT volume FROM bars WHERE timestamp = ?", bars[1].Time.Unix()).Scan(&vol))
	assert.False(t, vol.Valid)
}
