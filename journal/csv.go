package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/scanner"
)

// ResultsFileName returns scan_results_{stamp}.csv, or
// scan_results_{stamp}_{scan}.csv when scan is set.
func ResultsFileName(runDate time.Time, scan string) string {
	stamp := market.DateStamp(runDate)
	if scan == "" {
		return fmt.Sprintf("scan_results_%s.csv", stamp)
	}
	return fmt.Sprintf("scan_results_%s_%s.csv", stamp, scan)
}

// WriteResults writes t to dir under ResultsFileName and returns the path.
// An existing file for the same day and scan is replaced.
func WriteResults(dir string, t *scanner.Table, runDate time.Time, scan string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scans dir: %w", err)
	}
	path := filepath.Join(dir, ResultsFileName(runDate, scan))

	fh, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(fh, t); err != nil {
		fh.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCSV writes the header and records of t.
func WriteCSV(w io.Writer, t *scanner.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return cw.Error()
}
