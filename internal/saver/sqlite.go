package saver

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bc-history/internal/model"
)

// SQLiteSaver writes rows into a `bars` table of a database file, replacing
// rows with the same timestamp. NaN is stored as NULL.
type SQLiteSaver struct{}

func (SQLiteSaver) Extension() string { return "sqlite" }

func (SQLiteSaver) Save(bars []model.Bar, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS bars (
		timestamp  INTEGER PRIMARY KEY,
		local_time TEXT NOT NULL,
		open       REAL,
		high       REAL,
		low        REAL,
		close      REAL,
		volume     REAL
	)`); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO bars
		(timestamp, local_time, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(
			b.Time.Unix(), b.Time.Format(time.RFC3339),
			nullable(b.Open), nullable(b.High), nullable(b.Low), nullable(b.Close), nullable(b.Volume),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", b.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}
