// Package journal records scan runs: the result CSV written after every
// run and an optional SQLite history of runs and matches.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/screener/scanner"
)

// ErrNotFound is returned when a run id has no record.
var ErrNotFound = errors.New("not found")

// RunRecord describes one executed scan.
type RunRecord struct {
	RunID      string
	Scan       string
	Mode       string
	Logic      string
	StartedAt  time.Time
	FinishedAt time.Time
	Matches    int
	OutputPath string
}

// Field is one diagnostic cell of a match.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MatchRecord is one result row of a run.
type MatchRecord struct {
	RunID     string
	Ticker    string
	Timeframe string
	Date      time.Time
	Close     float64
	Fields    []Field
}

// Matches converts the rows of a result table into match records. Every
// diagnostic is rendered the way the result CSV renders it.
func Matches(runID string, t *scanner.Table) []MatchRecord {
	out := make([]MatchRecord, len(t.Rows))
	for i, r := range t.Rows {
		fields := make([]Field, 0, len(r.Fields))
		for _, f := range r.Fields {
			fields = append(fields, Field{Name: f.Name, Value: scanner.FormatValue(f.Value)})
		}
		out[i] = MatchRecord{
			RunID:     runID,
			Ticker:    r.Ticker,
			Timeframe: string(r.Timeframe),
			Date:      r.Date,
			Close:     r.Close,
			Fields:    fields,
		}
	}
	return out
}

type Journal interface {
	RecordRun(ctx context.Context, run RunRecord, matches []MatchRecord) error
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListMatchesByRunID(ctx context.Context, runID string) ([]MatchRecord, error)
	ListRunsBetween(ctx context.Context, start, end time.Time) ([]RunRecord, error)
	Close() error
}
