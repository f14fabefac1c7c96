package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// DateColumn is the name of the index column in frame files.
const DateColumn = "date"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate accepts the date formats written by ReadCSV's producers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseValue converts a cell into a float. Empty cells and NaN read as NaN,
// True/False read as 1/0.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadCSVFile opens path and reads a frame from it.
func ReadCSVFile(path, ticker string, tf Timeframe) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := ReadCSV(fh, ticker, tf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ReadCSV reads a frame with a leading date column. Columns that hold
// non-numeric text are skipped.
func ReadCSV(r io.Reader, ticker string, tf Timeframe) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, err
	}

	dateIdx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), DateColumn) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, errors.New("missing date column")
	}

	var dates []time.Time
	cols := make([][]float64, len(header))
	textual := make([]bool, len(header))

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		d, err := ParseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, d)

		for i := range header {
			if i == dateIdx {
				continue
			}
			v := math.NaN()
			if i < len(rec) && !textual[i] {
				pv, err := ParseValue(rec[i])
				if err != nil {
					textual[i] = true
				} else {
					v = pv
				}
			}
			cols[i] = append(cols[i], v)
		}
	}

	f := NewFrame(ticker, tf, dates)
	for i, h := range header {
		if i == dateIdx || textual[i] {
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if err := f.Set(name, cols[i]); err != nil {
			return nil, err
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteCSVFile writes f to path, replacing any existing file.
func WriteCSVFile(path string, f *Frame) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(fh, f); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// WriteCSV writes f with a leading date column. NaN is written as an empty
// cell.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)

	names := f.Names()
	if err := cw.Write(append([]string{DateColumn}, names...)); err != nil {
		return err
	}

	layout := dateLayout(f.Dates)
	row := make([]string, len(names)+1)
	for i := 0; i < f.Len(); i++ {
		row[0] = f.Dates[i].Format(layout)
		for j, n := range names {
			v, _ := f.Value(n, i)
			row[j+1] = FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell. NaN becomes empty.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func dateLayout(dates []time.Time) string {
	for _, d := range dates {
		if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 {
			return "2006-01-02 15:04:05"
		}
	}
	return "2006-01-02"
}

// FormatDate renders a single date the way WriteCSV would.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout([]time.Time{t}))
}
