package market

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileKey identifies a frame file: {TICKER}_{TIMEFRAME}_{DATESTAMP}.csv.
type FileKey struct {
	Ticker    string
	Timeframe Timeframe
	DateStamp string
	Path      string
}

// DateStamp formats t as ddmmyy.
func DateStamp(t time.Time) string {
	return t.Format("020106")
}

// FileName returns the canonical file name for a frame.
func FileName(ticker string, tf Timeframe, stamp string) string {
	return fmt.Sprintf("%s_%s_%s.csv", ticker, tf, stamp)
}

// ParseFileName splits a frame file name into its key. The timeframe must
// be a known name or alias.
func ParseFileName(name string) (FileKey, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(strings.ToLower(base), ".csv") {
		return FileKey{}, fmt.Errorf("not a csv file: %s", base)
	}
	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(parts) < 3 {
		return FileKey{}, fmt.Errorf("file name %s does not match TICKER_TIMEFRAME_DATESTAMP.csv", base)
	}
	tf, err := ParseTimeframe(parts[1])
	if err != nil {
		return FileKey{}, fmt.Errorf("file name %s: %w", base, err)
	}
	return FileKey{
		Ticker:    parts[0],
		Timeframe: tf,
		DateStamp: parts[2],
		Path:      name,
	}, nil
}

// ListFiles returns the frame files in dir sorted by ticker then timeframe.
// Files whose names do not parse are skipped. When timeframes is non-empty
// only those timeframes are returned.
func ListFiles(dir string, timeframes ...Timeframe) ([]FileKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	want := make(map[Timeframe]bool, len(timeframes))
	for _, tf := range timeframes {
		want[tf] = true
	}

	var keys []FileKey
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		k, err := ParseFileName(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if len(want) > 0 && !want[k.Timeframe] {
			continue
		}
		keys = append(keys, k)
	}

	SortKeys(keys)
	return keys, nil
}

// Date parses the ddmmyy stamp. The zero time is returned for stamps that
// do not parse.
func (k FileKey) Date() time.Time {
	t, err := time.Parse("020106", k.DateStamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortKeys orders keys by ticker, timeframe rank, then stamp date.
func SortKeys(keys []FileKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Timeframe != b.Timeframe {
			return a.Timeframe.Rank() < b.Timeframe.Rank()
		}
		if da, db := a.Date(), b.Date(); !da.Equal(db) {
			return da.Before(db)
		}
		return a.DateStamp < b.DateStamp
	})
}

// Latest keeps the newest stamp of every (ticker, timeframe) pair. keys
// must be sorted with SortKeys.
func Latest(keys []FileKey) []FileKey {
	var out []FileKey
	for i, k := range keys {
		if i+1 < len(keys) && keys[i+1].Ticker == k.Ticker && keys[i+1].Timeframe == k.Timeframe {
			continue
		}
		out = append(out, k)
	}
	return out
}

// GroupByTicker collects keys per ticker in key order.
func GroupByTicker(keys []FileKey) (tickers []string, byTicker map[string]map[Timeframe]FileKey) {
	byTicker = make(map[string]map[Timeframe]FileKey)
	for _, k := range keys {
		m, ok := byTicker[k.Ticker]
		if !ok {
			m = make(map[Timeframe]FileKey)
			byTicker[k.Ticker] = m
			tickers = append(tickers, k.Ticker)
		}
		m[k.Timeframe] = k
	}
	return tickers, byTicker
}

// Load reads the frame the key points at.
func (k FileKey) Load() (*Frame, error) {
	return ReadCSVFile(k.Path, k.Ticker, k.Timeframe)
}
