package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var rec RunRecord

	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, scan, mode, logic, started_at, finished_at, matches, output_path
		FROM scan_runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&rec.RunID,
		&rec.Scan,
		&rec.Mode,
		&rec.Logic,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.Matches,
		&rec.OutputPath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRunsBetween returns runs whose started_at is within [start, end).
func (j *SQLite) ListRunsBetween(ctx context.Context, start, end time.Time) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, scan, mode, logic, started_at, finished_at, matches, output_path
		FROM scan_runs
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at ASC, run_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Scan,
			&rec.Mode,
			&rec.Logic,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.Matches,
			&rec.OutputPath,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRunsOn returns the runs started on the calendar day of day, in the
// location of day.
func (j *SQLite) ListRunsOn(ctx context.Context, day time.Time) ([]RunRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return j.ListRunsBetween(ctx, start, start.AddDate(0, 0, 1))
}

// ListMatchesByRunID returns the matches of a run in result order.
func (j *SQLite) ListMatchesByRunID(ctx context.Context, runID string) ([]MatchRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ticker, timeframe, date, close, fields
		FROM scan_matches
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var (
			rec    MatchRecord
			fields string
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.Ticker,
			&rec.Timeframe,
			&rec.Date,
			&rec.Close,
			&fields,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", rec.Ticker, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMatchesByTicker returns every recorded match of ticker, newest run
// first.
func (j *SQLite) ListMatchesByTicker(ctx context.Context, ticker string) ([]MatchRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT m.run_id, m.ticker, m.timeframe, m.date, m.close, m.fields
		FROM scan_matches m
		JOIN scan_runs r ON r.run_id = m.run_id
		WHERE m.ticker = ?
		ORDER BY r.started_at DESC, m.seq ASC`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var (
			rec    MatchRecord
			fields string
		)
		if err := rows.Scan(&rec.RunID, &rec.Ticker, &rec.Timeframe, &rec.Date, &rec.Close, &fields); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", rec.Ticker, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
