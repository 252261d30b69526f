package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

// RunHistory persists every qualification result to a local SQLite
// file. Purely operational: the authoritative result goes back to the
// caller; this store exists so operators can inspect recent runs
// without digging through logs.

// RunSummary is one row of the recent-runs listing.
type RunSummary struct {
	ID        int64   `json:"id"`
	ScannerID int64   `json:"scanner_id"`
	Success   bool    `json:"success"`
	Qualified int     `json:"qualified"`
	Analyzed  int     `json:"analyzed"`
	ElapsedS  float64 `json:"elapsed_s"`
	Error     string  `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type RunHistory struct {
	db *sql.DB
}

// OpenRunHistory opens (or creates) the SQLite history database.
// An empty path defaults to ~/.go_scanner/runs.db.
func OpenRunHistory(path string) (*RunHistory, error) {
	if path == "" {
		dir := filepath.Join(os.Getenv("HOME"), ".go_scanner")
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
		path = filepath.Join(dir, "runs.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initHistorySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &RunHistory{db: db}, nil
}

func initHistorySchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		scanner_id  INTEGER NOT NULL,
		success     INTEGER NOT NULL,
		qualified   INTEGER NOT NULL,
		analyzed    INTEGER NOT NULL,
		elapsed_s   REAL NOT NULL,
		error       TEXT,
		result_json TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`)
	return err
}

// Record stores one finished run.
func (h *RunHistory) Record(ctx context.Context, res *qualify.Result) error {
	if h == nil || h.db == nil {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("history: marshal result: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO runs (scanner_id, success, qualified, analyzed, elapsed_s, error, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ScannerID,
		boolToInt(res.Success),
		len(res.QualifiedIDs),
		res.TotalAnalyzed,
		res.ExecutionTimeSeconds,
		res.Error,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// Recent lists the newest runs, most recent first.
func (h *RunHistory) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if h == nil || h.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, scanner_id, success, qualified, analyzed, elapsed_s, COALESCE(error, ''), created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		if err := rows.Scan(&r.ID, &r.ScannerID, &success, &r.Qualified, &r.Analyzed, &r.ElapsedS, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Success = success != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (h *RunHistory) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
