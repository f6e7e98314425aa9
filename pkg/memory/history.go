package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// CycleRecord is one completed trading cycle
type CycleRecord struct {
	ID               int64
	CycleTime        string
	Summary          string
	BalanceAvailable decimal.Decimal
	BalanceLocked    decimal.Decimal
	BalanceTotal     decimal.Decimal
	DryRun           bool
}

// History is the SQLite-backed cycle log
type History struct {
	db  *sql.DB
	now func() time.Time
}

// OpenHistory opens (and if needed creates) the cycle history database
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	h := &History{db: db, now: time.Now}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cycle_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_time TEXT,
			summary TEXT,
			balance_available REAL,
			balance_locked REAL,
			balance_total REAL,
			dry_run INTEGER
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return h, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// Append records a completed cycle
func (h *History) Append(ctx context.Context, summary string, balances BalanceSnapshot, dryRun bool) error {
	dry := 0
	if dryRun {
		dry = 1
	}

	available, _ := balances.Available.Float64()
	locked, _ := balances.Locked.Float64()
	total, _ := balances.Total.Float64()

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO cycle_history
			(cycle_time, summary, balance_available, balance_locked, balance_total, dry_run)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.now().UTC().Format(time.RFC3339), summary, available, locked, total, dry)
	if err != nil {
		return fmt.Errorf("append cycle history: %w", err)
	}
	return nil
}

// Recent returns the latest cycles, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, cycle_time, summary, balance_available, balance_locked, balance_total, dry_run
		FROM cycle_history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read cycle history: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var r CycleRecord
		var available, locked, total float64
		var dry int
		if err := rows.Scan(&r.ID, &r.CycleTime, &r.Summary, &available, &locked, &total, &dry); err != nil {
			return nil, err
		}
		r.BalanceAvailable = decimal.NewFromFloat(available)
		r.BalanceLocked = decimal.NewFromFloat(locked)
		r.BalanceTotal = decimal.NewFromFloat(total)
		r.DryRun = dry != 0
		records = append(records, r)
	}
	return records, rows.Err()
}
