package scanner

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/screener/criteria"
	"github.com/rustyeddy/screener/market"
)

// BaseColumns lead every result table.
var BaseColumns = []string{"date", "Ticker", "Timeframe", "Close"}

// Row is one passing (ticker, timeframe).
type Row struct {
	Date      time.Time
	Ticker    string
	Timeframe market.Timeframe
	Close     float64
	// Fields holds the namespaced diagnostics of every criterion that ran.
	Fields []criteria.Field
}

// Get returns the value of a diagnostic column.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Table is the result of a scan run.
type Table struct {
	Rows []Row
	// Columns lists the diagnostic columns in first-seen order.
	Columns []string
	// Extra columns appended after the diagnostics, keyed by ticker.
	Extra map[string]map[string]string
	// ExtraColumns orders the extra columns.
	ExtraColumns []string
}

// NewTable builds a table from rows and collects their diagnostic columns.
func NewTable(rows []Row) *Table {
	t := &Table{Rows: rows}
	seen := make(map[string]bool)
	for _, r := range rows {
		for _, f := range r.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				t.Columns = append(t.Columns, f.Name)
			}
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Tickers returns the distinct tickers in row order.
func (t *Table) Tickers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if !seen[r.Ticker] {
			seen[r.Ticker] = true
			out = append(out, r.Ticker)
		}
	}
	return out
}

// SetExtra adds per-ticker columns after the diagnostics.
func (t *Table) SetExtra(columns []string, byTicker map[string]map[string]string) {
	t.ExtraColumns = columns
	t.Extra = byTicker
}

// Header returns the full column list.
func (t *Table) Header() []string {
	out := append([]string{}, BaseColumns...)
	out = append(out, t.Columns...)
	return append(out, t.ExtraColumns...)
}

// Records renders every row as strings aligned to Header.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rec := []string{
			market.FormatDate(r.Date),
			r.Ticker,
			string(r.Timeframe),
			market.FormatValue(r.Close),
		}
		for _, c := range t.Columns {
			v, ok := r.Get(c)
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, FormatValue(v))
		}
		for _, c := range t.ExtraColumns {
			rec = append(rec, t.Extra[r.Ticker][c])
		}
		out[i] = rec
	}
	return out
}

// FormatValue renders a diagnostic value as a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return market.FormatValue(x)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case time.Time:
		return market.FormatDate(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
