package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun stores a run and its matches in one transaction.
func (j *SQLite) RecordRun(ctx context.Context, run RunRecord, matches []MatchRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_runs
		(run_id, scan, mode, logic, started_at, finished_at, matches, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Scan, run.Mode, run.Logic,
		run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Matches, run.OutputPath,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_matches
		(run_id, seq, ticker, timeframe, date, close, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range matches {
		fields, err := json.Marshal(m.Fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			run.RunID, i, m.Ticker, m.Timeframe, m.Date.UTC(), m.Close, string(fields),
		); err != nil {
			return fmt.Errorf("insert match %s %s: %w", m.Ticker, m.Timeframe, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
